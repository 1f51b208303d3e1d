// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package chromem implements storage.Collection with the chromem-go embedded
// vector database. Each document is persisted as a gob file under the
// collection directory as soon as it is added.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/ragprep/core"
	"github.com/poiesic/ragprep/storage"
)

// SpaceKey is the collection metadata key naming the distance function.
const SpaceKey = "hnsw:space"

const metadataInsertedAt = "inserted_at"

var errNoEmbeddingFunc = errors.New("chromem collection requires precomputed embeddings")

// Collection implements storage.Collection over a chromem-go collection.
type Collection struct {
	db          *chromem.DB
	coll        *chromem.Collection
	path        string
	concurrency int
	logger      *slog.Logger

	mu        sync.Mutex
	dimension int
	updatedAt time.Time
	closed    bool
}

var _ storage.Collection = (*Collection)(nil)

// Option configures a Collection.
type Option func(*Collection) error

// WithConcurrency sets how many documents are added in parallel.
func WithConcurrency(n int) Option {
	return func(c *Collection) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1, got %d", n)
		}
		c.concurrency = n
		return nil
	}
}

// OpenCollection opens (or creates) the named collection persisted under path.
// An empty path keeps the collection in memory.
func OpenCollection(path, name string, opts ...Option) (storage.Collection, error) {
	if err := core.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	var db *chromem.DB
	if path == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, err
		}
	}

	metadata := map[string]string{SpaceKey: core.DistanceCosine}
	coll, err := db.GetOrCreateCollection(name, metadata, refuseEmbedding)
	if err != nil {
		return nil, err
	}

	c := &Collection{
		db:          db,
		coll:        coll,
		path:        path,
		concurrency: 1,
		logger:      slog.Default().With("component", "chromem", "collection", name),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func refuseEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// Info reports the collection metadata. Dimension is learned from the first
// write or query and stays zero for a reopened collection until then.
func (c *Collection) Info(ctx context.Context) (*core.CollectionInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, storage.ErrStorageClosed
	}
	return &core.CollectionInfo{
		Name:      c.coll.Name,
		Metric:    core.DistanceCosine,
		Dimension: c.dimension,
		Count:     c.coll.Count(),
		UpdatedAt: c.updatedAt,
	}, nil
}

// Upsert validates every chunk, then adds them all. chromem normalizes vectors on insert.
func (c *Collection) Upsert(ctx context.Context, chunks ...*core.EmbeddedChunk) ([]*core.EmbeddedChunk, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, storage.ErrStorageClosed
	}
	if len(chunks) == 0 {
		return chunks, nil
	}

	for _, chunk := range chunks {
		if err := core.ValidateEmbeddedChunk(chunk); err != nil {
			return nil, err
		}
	}

	dim, err := c.resolveDimension(ctx, chunks[0].Vector)
	if err != nil {
		return nil, err
	}
	for _, chunk := range chunks {
		if len(chunk.Vector) != dim {
			return nil, fmt.Errorf("%w: chunk %d of %s has %d components, expected %d",
				storage.ErrDimensionMismatch, chunk.Chunk.Index, chunk.Chunk.Source, len(chunk.Vector), dim)
		}
	}

	now := time.Now().UTC()
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		if chunk.Id == 0 {
			chunk.Id = chunk.Chunk.ID()
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
		metadata := chunk.Chunk.Metadata()
		metadata[metadataInsertedAt] = chunk.InsertedAt.Format(time.RFC3339Nano)
		docs[i] = chromem.Document{
			ID:        chunk.Id.String(),
			Metadata:  metadata,
			Embedding: append([]float32(nil), chunk.Vector...),
			Content:   chunk.Chunk.Content,
		}
	}

	if err := c.coll.AddDocuments(ctx, docs, c.concurrency); err != nil {
		return nil, err
	}

	c.dimension = dim
	c.updatedAt = now
	c.logger.Debug("upserted chunks", "count", len(chunks), "dimension", dim)
	return chunks, nil
}

// resolveDimension returns the collection dimension, probing stored
// documents with v when the collection was reopened.
// Callers must hold c.mu.
func (c *Collection) resolveDimension(ctx context.Context, v []float32) (int, error) {
	if c.dimension != 0 {
		return c.dimension, nil
	}
	if c.coll.Count() == 0 {
		return len(v), nil
	}
	res, err := c.coll.QueryEmbedding(ctx, v, 1, nil, nil)
	if err != nil {
		// chromem rejects dot products of unequal length
		return 0, fmt.Errorf("%w: %w", storage.ErrDimensionMismatch, err)
	}
	if len(res) == 0 {
		return len(v), nil
	}
	c.dimension = len(res[0].Embedding)
	return c.dimension, nil
}

// Get retrieves a single embedded chunk by ID.
func (c *Collection) Get(ctx context.Context, id core.ID) (*core.EmbeddedChunk, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, storage.ErrStorageClosed
	}

	doc, err := c.coll.GetByID(ctx, id.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return toEmbeddedChunk(doc.ID, doc.Metadata, doc.Embedding, doc.Content), nil
}

// Count returns the number of stored documents.
func (c *Collection) Count(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, storage.ErrStorageClosed
	}
	return c.coll.Count(), nil
}

// FindSimilar runs an exhaustive cosine query.
func (c *Collection) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	count := c.coll.Count()
	if count == 0 {
		return nil, nil
	}
	if c.dimension != 0 && len(vector) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d components, expected %d",
			storage.ErrDimensionMismatch, len(vector), c.dimension)
	}

	// chromem requires nResults <= document count
	results, err := c.coll.QueryEmbedding(ctx, vector, min(limit, count), nil, nil)
	if err != nil {
		if c.dimension == 0 {
			return nil, fmt.Errorf("%w: %w", storage.ErrDimensionMismatch, err)
		}
		return nil, err
	}

	matches := make([]*core.ChunkMatch, 0, len(results))
	for _, r := range results {
		if c.dimension == 0 {
			c.dimension = len(r.Embedding)
		}
		if r.Similarity < minSimilarity {
			continue
		}
		matches = append(matches, &core.ChunkMatch{
			Chunk: toEmbeddedChunk(r.ID, r.Metadata, r.Embedding, r.Content),
			Score: r.Similarity,
		})
	}
	return matches, nil
}

// Persist is a no-op: chromem writes each document to disk when it is added.
func (c *Collection) Persist(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

// Path returns the persistence directory.
func (c *Collection) Path() string {
	return c.path
}

// Close marks the collection closed. chromem holds no open handles.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func toEmbeddedChunk(id string, metadata map[string]string, embedding []float32, content string) *core.EmbeddedChunk {
	ec := &core.EmbeddedChunk{
		Chunk: core.Chunk{
			Source:  metadata[core.MetadataSource],
			Content: content,
		},
		Vector: embedding,
	}
	if parsed, err := core.ParseID(id); err == nil {
		ec.Id = parsed
	}
	ec.Chunk.Index, _ = strconv.Atoi(metadata[core.MetadataIndex])
	ec.Chunk.Offset, _ = strconv.Atoi(metadata[core.MetadataOffset])
	if ts, err := time.Parse(time.RFC3339Nano, metadata[metadataInsertedAt]); err == nil {
		ec.InsertedAt = ts
	}
	return ec
}
