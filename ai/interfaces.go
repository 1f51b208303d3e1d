package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EntityTagger is a named-entity tagging service.
// Implementations must be thread-safe for concurrent use.
type EntityTagger interface {
	// Tag returns token-level entity tags for text, in input order.
	// Offsets are byte offsets into text. Services that tag whole spans
	// report each span as a single B- token.
	// Returns an error if the service call fails.
	Tag(ctx context.Context, text string) ([]TaggedToken, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// EntityTagger returns the named-entity tagging service.
	// The returned EntityTagger is safe for concurrent use.
	EntityTagger() EntityTagger

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
