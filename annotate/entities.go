package annotate

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/ragprep/ai"
	"github.com/poiesic/ragprep/core"
	"github.com/sony/gobreaker"
)

const (
	defaultMaxFailures    = 5
	defaultBreakerTimeout = 30 * time.Second
)

// EntityExtractor finds named entities through an ai.EntityTagger.
// Calls go through a circuit breaker so a dead tagging service is not
// hammered once per text.
type EntityExtractor struct {
	tagger  ai.EntityTagger
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// EntityOption configures an EntityExtractor.
type EntityOption func(*entityOptions)

type entityOptions struct {
	maxFailures uint32
	timeout     time.Duration
}

// WithCircuitBreaker opens the breaker after maxFailures consecutive
// failures and keeps it open for timeout before probing again.
func WithCircuitBreaker(maxFailures uint32, timeout time.Duration) EntityOption {
	return func(o *entityOptions) {
		o.maxFailures = maxFailures
		o.timeout = timeout
	}
}

// NewEntityExtractor creates an extractor backed by tagger.
func NewEntityExtractor(tagger ai.EntityTagger, opts ...EntityOption) *EntityExtractor {
	options := &entityOptions{
		maxFailures: defaultMaxFailures,
		timeout:     defaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.maxFailures == 0 {
		options.maxFailures = 1
	}

	logger := slog.Default().With("component", "entity-extractor")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "entity-tagger",
		MaxRequests: 1,
		Timeout:     options.timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= options.maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from, "to", to)
		},
	})

	return &EntityExtractor{
		tagger:  tagger,
		breaker: breaker,
		logger:  logger,
	}
}

// Extract returns the entity spans found in text, ordered by start offset.
// It never fails: blank text, a tagging error or an open breaker all give
// an empty slice.
func (e *EntityExtractor) Extract(ctx context.Context, text string) []core.EntityAnnotation {
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("no text to tag")
		return []core.EntityAnnotation{}
	}

	result, err := e.breaker.Execute(func() (interface{}, error) {
		return e.tagger.Tag(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			e.logger.Warn("tagging service unavailable, skipping entities", "err", err)
		} else {
			e.logger.Warn("entity tagging failed", "err", err)
		}
		return []core.EntityAnnotation{}
	}

	tokens, _ := result.([]ai.TaggedToken)
	entities := Aggregate(text, tokens)
	e.logger.Debug("tagged text", "tokens", len(tokens), "entities", len(entities))
	return entities
}
