package ingestion

import "errors"

var (
	// ErrDocumentsNotFound is returned when the documents directory is missing,
	// is not a directory, or holds no matching files. It wraps fs.ErrNotExist.
	ErrDocumentsNotFound = errors.New("documents not found")

	// ErrUndecodable is returned when a file's text encoding cannot be
	// detected or decoded.
	ErrUndecodable = errors.New("undecodable document")

	// ErrInvalidChunking is returned for a chunk size below 1, a negative
	// overlap, or an overlap not smaller than the chunk size.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrEmbeddingFatal is returned when the embedding service fails in a way
	// retrying cannot fix, such as bad credentials or an unknown model.
	ErrEmbeddingFatal = errors.New("embedding failed permanently")

	// ErrRetriesExhausted is returned when a transient embedding failure
	// persists through every retry.
	ErrRetriesExhausted = errors.New("embedding retries exhausted")

	// ErrInvalidMaxAttempts is returned when a retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrCollectionRequired is returned when a sink has no vector store collection.
	ErrCollectionRequired = errors.New("collection required")

	// ErrEmbedderRequired is returned when a sink has no embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrStageRequired is returned when a pipeline is missing its loader,
	// splitter or sink.
	ErrStageRequired = errors.New("pipeline stage required")

	// errVectorCount marks an embedding response with the wrong number of vectors.
	errVectorCount = errors.New("vector count mismatch")
)
