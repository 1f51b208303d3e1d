package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/ragprep/ai"
	"github.com/poiesic/ragprep/core"
	"github.com/poiesic/ragprep/storage"
	"github.com/tmc/langchaingo/schema"
)

// keywordBoost is added to a match containing every significant query word.
const keywordBoost = 0.3

// Retriever finds the stored chunks most similar to a query.
type Retriever struct {
	collection    storage.Collection
	embedder      ai.Embedder
	minSimilarity float32
	keywordBoost  bool
	monitor       QueryMonitor
	logger        *slog.Logger
}

// Option configures a Retriever.
type Option func(*Retriever) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithMinSimilarity drops matches whose cosine similarity is below threshold.
// Default is -1, which keeps every candidate.
func WithMinSimilarity(threshold float32) Option {
	return func(r *Retriever) error {
		if threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: minimum similarity %v outside [-1, 1]", storage.ErrInvalidQuery, threshold)
		}
		r.minSimilarity = threshold
		return nil
	}
}

// WithKeywordBoost re-ranks matches so that chunks containing every
// significant query word score higher.
func WithKeywordBoost(enabled bool) Option {
	return func(r *Retriever) error {
		r.keywordBoost = enabled
		return nil
	}
}

// WithMonitor sets the monitor Query reports to. QueryWithMonitor
// overrides it per call.
func WithMonitor(monitor QueryMonitor) Option {
	return func(r *Retriever) error {
		r.monitor = monitor
		return nil
	}
}

// NewRetriever creates a retriever over collection. The embedder must be
// the one the collection was built with.
func NewRetriever(collection storage.Collection, embedder ai.Embedder, opts ...Option) (*Retriever, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	r := &Retriever{
		collection:    collection,
		embedder:      embedder,
		minSimilarity: -1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Query returns up to k chunks ranked by similarity to text.
func (r *Retriever) Query(ctx context.Context, text string, k int) ([]*core.ChunkMatch, error) {
	return r.QueryWithMonitor(ctx, text, k, r.monitor)
}

// QueryWithMonitor is Query with callbacks at each stage.
func (r *Retriever) QueryWithMonitor(ctx context.Context, text string, k int, monitor QueryMonitor) ([]*core.ChunkMatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}
	if k < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, k)
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(text, k)

	vector, err := r.embedder.EmbedText(ctx, text)
	if err != nil {
		r.logger.Error("error generating embedding for query", "query", text, "err", err)
		return nil, err
	}
	monitor.AfterEmbedding(len(vector))

	// Re-ranking needs a wider pool than the final result.
	limit := k
	if r.keywordBoost {
		limit = k * 3
	}

	matches, err := r.collection.FindSimilar(ctx, vector, r.minSimilarity, limit)
	if err != nil {
		r.logger.Error("error querying for similar chunks", "err", err)
		return nil, err
	}
	monitor.AfterSearch(matches)

	if r.keywordBoost {
		for _, m := range matches {
			if containsAllQueryWords(m.Chunk.Chunk.Content, text) {
				m.Score += keywordBoost
				monitor.KeywordHit(m)
			}
		}
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].Score > matches[j].Score
		})
	}
	if len(matches) > k {
		matches = matches[:k]
	}

	r.logger.Debug("query finished", "k", k, "results", len(matches))
	monitor.Finish(matches)
	return matches, nil
}

// AsSchemaRetriever adapts r to langchaingo's schema.Retriever, returning
// k documents per query.
func (r *Retriever) AsSchemaRetriever(k int) schema.Retriever {
	return documentRetriever{retriever: r, k: k}
}

type documentRetriever struct {
	retriever *Retriever
	k         int
}

func (d documentRetriever) GetRelevantDocuments(ctx context.Context, query string) ([]schema.Document, error) {
	matches, err := d.retriever.Query(ctx, query, d.k)
	if err != nil {
		return nil, err
	}
	docs := make([]schema.Document, len(matches))
	for i, m := range matches {
		docs[i] = storage.DocumentFromMatch(m)
	}
	return docs, nil
}
