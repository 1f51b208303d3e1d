package storage

import (
	"context"

	"github.com/poiesic/ragprep/core"
)

// Collection is a named, durable set of embedded chunks searched by cosine similarity.
// Implementations must be thread-safe and support concurrent readers; a single
// writer per collection is assumed.
type Collection interface {
	// Info returns the collection's name, metric, fixed dimension and size.
	// Dimension is zero until the first vector has been written.
	Info(ctx context.Context) (*core.CollectionInfo, error)

	// Upsert writes embedded chunks to the collection in a single batch.
	// Chunks with Id=0 get a content-derived ID. Every vector must match the
	// collection dimension, otherwise nothing is written and
	// ErrDimensionMismatch is returned.
	Upsert(ctx context.Context, chunks ...*core.EmbeddedChunk) ([]*core.EmbeddedChunk, error)

	// Get retrieves a single embedded chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.EmbeddedChunk, error)

	// Count returns the number of vectors stored in the collection.
	Count(ctx context.Context) (int, error)

	// FindSimilar finds chunks similar to the given vector.
	// Returns chunks with similarity >= minSimilarity, up to limit results.
	// Results are ordered by similarity score (highest first).
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error)

	// Persist flushes all written data to durable storage.
	Persist(ctx context.Context) error

	// Path returns the persist directory, or "" for in-memory collections.
	Path() string

	// Close closes the collection and releases resources.
	Close() error
}
