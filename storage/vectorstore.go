package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/poiesic/ragprep/core"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

// ErrMissingEmbedder is returned when a VectorStore operation has no embedder.
var ErrMissingEmbedder = errors.New("vector store has no embedder")

// VectorStore exposes a Collection through langchaingo's vectorstores.VectorStore.
type VectorStore struct {
	collection Collection
	embedder   embeddings.Embedder
}

var _ vectorstores.VectorStore = (*VectorStore)(nil)

// NewVectorStore wraps a collection. The embedder may be nil when every call
// supplies one through vectorstores.WithEmbedder.
func NewVectorStore(collection Collection, embedder embeddings.Embedder) *VectorStore {
	return &VectorStore{collection: collection, embedder: embedder}
}

// AddDocuments embeds and stores docs, returning their IDs.
// Chunk provenance is read from the "source", "chunk_index" and "chunk_offset"
// metadata keys when present.
func (s *VectorStore) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	opts := s.options(options)
	if opts.Embedder == nil {
		return nil, ErrMissingEmbedder
	}

	var texts []string
	var kept []schema.Document
	for _, doc := range docs {
		if opts.Deduplicater != nil && opts.Deduplicater(ctx, doc) {
			continue
		}
		texts = append(texts, doc.PageContent)
		kept = append(kept, doc)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	vectors, err := opts.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(kept) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(kept))
	}

	chunks := make([]*core.EmbeddedChunk, len(kept))
	for i, doc := range kept {
		chunk := chunkFromDocument(doc, opts.NameSpace)
		chunks[i] = &core.EmbeddedChunk{Id: chunk.ID(), Chunk: chunk, Vector: vectors[i]}
	}

	stored, err := s.collection.Upsert(ctx, chunks...)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(stored))
	for i, c := range stored {
		ids[i] = c.Id.String()
	}
	return ids, nil
}

// SimilaritySearch embeds query and returns the numDocuments most similar chunks.
// Document.Score carries the cosine similarity.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := s.options(options)
	if opts.Embedder == nil {
		return nil, ErrMissingEmbedder
	}

	vector, err := opts.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	// Cosine similarity lies in [-1, 1]; -1 keeps every candidate.
	threshold := float32(-1)
	if opts.ScoreThreshold != 0 {
		threshold = opts.ScoreThreshold
	}

	matches, err := s.collection.FindSimilar(ctx, vector, threshold, numDocuments)
	if err != nil {
		return nil, err
	}

	docs := make([]schema.Document, len(matches))
	for i, m := range matches {
		docs[i] = DocumentFromMatch(m)
	}
	return docs, nil
}

// DocumentFromMatch converts a search hit to a langchaingo document.
func DocumentFromMatch(m *core.ChunkMatch) schema.Document {
	metadata := make(map[string]any, 4)
	for k, v := range m.Chunk.Chunk.Metadata() {
		metadata[k] = v
	}
	metadata["id"] = m.Chunk.Id.String()
	return schema.Document{
		PageContent: m.Chunk.Chunk.Content,
		Metadata:    metadata,
		Score:       m.Score,
	}
}

func (s *VectorStore) options(options []vectorstores.Option) vectorstores.Options {
	opts := vectorstores.Options{Embedder: s.embedder}
	for _, opt := range options {
		opt(&opts)
	}
	return opts
}

func chunkFromDocument(doc schema.Document, fallbackSource string) core.Chunk {
	chunk := core.Chunk{Content: doc.PageContent, Source: fallbackSource}
	if src, ok := doc.Metadata[core.MetadataSource].(string); ok && src != "" {
		chunk.Source = src
	}
	if chunk.Source == "" {
		chunk.Source = "unknown"
	}
	chunk.Index = metadataInt(doc.Metadata, core.MetadataIndex)
	chunk.Offset = metadataInt(doc.Metadata, core.MetadataOffset)
	return chunk
}

func metadataInt(md map[string]any, key string) int {
	switch v := md[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return 0
}
