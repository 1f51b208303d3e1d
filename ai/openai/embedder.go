package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/ragprep/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	limiter  *rate.Limiter
	errors   *llms.ErrorMapper
	logger   *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token(config.APIKey)),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithStripNewLines(true),
		embeddings.WithBatchSize(config.EmbeddingBatchSize),
	)
	if err != nil {
		return nil, err
	}

	e := &Embedder{
		embedder: embedder,
		errors:   errorMapper(),
		logger:   slog.Default().With("component", "openai-embedder"),
	}
	if config.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	return e, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
// Errors are classified into *llms.Error values so callers can tell
// permanent failures from transient ones with ai.IsPermanent.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, e.errors.WrapError(err)
		}
	}

	// langchaingo strips newlines in place
	input := make([]string, len(texts))
	copy(input, texts)

	vectors, err := e.embedder.EmbedDocuments(ctx, input)
	if err != nil {
		err = e.errors.WrapError(err)
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}

// errorMapper extends langchaingo's OpenAI mapper with the exhausted-quota
// error, which OpenAI reports as HTTP 429.
func errorMapper() *llms.ErrorMapper {
	return llms.OpenAIErrorMapper().AddMatcher(llms.ErrorMatcher{
		Match: func(err error) bool {
			return strings.Contains(strings.ToLower(err.Error()), "current quota")
		},
		Code: llms.ErrCodeQuotaExceeded,
	})
}

// token returns the API key, or "none" for local OpenAI-compatible
// services that don't require authentication.
func token(apiKey string) string {
	if apiKey == "" {
		return "none"
	}
	return apiKey
}
