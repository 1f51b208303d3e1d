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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/ragprep/core"
	"github.com/poiesic/ragprep/storage"
)

// Collection implements storage.Collection on top of BadgerDB.
type Collection struct {
	backend     *Backend
	ownsBackend bool
	name        string
	logger      *slog.Logger
}

var _ storage.Collection = (*Collection)(nil)

// OpenCollection opens (or creates) the named collection in a BadgerDB
// database at path. Closing the collection closes the database.
func OpenCollection(path, name string) (storage.Collection, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	coll, err := NewCollection(backend, name)
	if err != nil {
		backend.Close()
		return nil, err
	}
	coll.ownsBackend = true
	return coll, nil
}

// NewCollection opens (or creates) the named collection on an existing backend.
// The caller keeps ownership of the backend.
func NewCollection(backend *Backend, name string) (*Collection, error) {
	if err := core.ValidateCollectionName(name); err != nil {
		return nil, err
	}

	c := &Collection{
		backend: backend,
		name:    name,
		logger:  slog.Default().With("component", "collection", "collection", name),
	}

	err := backend.WithTx(func(tx *badger.Txn) error {
		info, err := readInfo(tx, name)
		if err != nil {
			return err
		}
		if info != nil {
			if info.Metric != core.DistanceCosine {
				return fmt.Errorf("%w: collection %s uses %q", storage.ErrUnsupportedMetric, name, info.Metric)
			}
			return nil
		}
		info = &core.CollectionInfo{
			Name:      name,
			Metric:    core.DistanceCosine,
			UpdatedAt: time.Now().UTC(),
		}
		if err := tx.Set(makeCollectionKey(name), storage.MarshalCollectionInfo(info)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Info returns the collection metadata with a fresh vector count.
func (c *Collection) Info(ctx context.Context) (*core.CollectionInfo, error) {
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var info *core.CollectionInfo
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = readInfo(tx, c.name)
		if err != nil {
			return err
		}
		if info == nil {
			return storage.ErrNotFound
		}
		info.Count = countChunks(tx, c.name)
		return nil
	}, false)
	return info, err
}

// Upsert writes chunks in one transaction, or in consecutive ones when the
// batch exceeds badger's transaction limit. Vectors are stored unit-length.
// The first write to an empty collection fixes its dimension.
func (c *Collection) Upsert(ctx context.Context, chunks ...*core.EmbeddedChunk) ([]*core.EmbeddedChunk, error) {
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if len(chunks) == 0 {
		return chunks, nil
	}

	now := time.Now().UTC()
	var info *core.CollectionInfo
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = readInfo(tx, c.name)
		if err != nil {
			return err
		}
		if info == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	dim := info.Dimension
	if dim == 0 {
		dim = len(chunks[0].Vector)
	}

	// Validate everything before the first write.
	for _, chunk := range chunks {
		if err := core.ValidateEmbeddedChunk(chunk); err != nil {
			return nil, err
		}
		if len(chunk.Vector) != dim {
			return nil, fmt.Errorf("%w: chunk %d of %s has %d components, collection %s expects %d",
				storage.ErrDimensionMismatch, chunk.Chunk.Index, chunk.Chunk.Source, len(chunk.Vector), c.name, dim)
		}
	}

	info.Dimension = dim
	info.UpdatedAt = now

	entries := make([]*badger.Entry, 0, len(chunks)+1)
	for _, chunk := range chunks {
		if chunk.Id == 0 {
			chunk.Id = chunk.Chunk.ID()
		}
		if chunk.InsertedAt.IsZero() {
			chunk.InsertedAt = now
		}
		record := *chunk
		record.Vector = storage.NormalizeVector(chunk.Vector)
		entries = append(entries, badger.NewEntry(makeChunkKey(c.name, chunk.Id), storage.MarshalEmbeddedChunk(&record)))
	}
	// Info goes last so a split write only fixes the dimension once every chunk is in.
	entries = append(entries, badger.NewEntry(makeCollectionKey(c.name), storage.MarshalCollectionInfo(info)))

	if err := c.writeEntries(entries); err != nil {
		return nil, err
	}

	c.logger.Debug("upserted chunks", "count", len(chunks), "dimension", dim)
	return chunks, nil
}

// writeTxn is the part of *badger.Txn used by commitInParts.
type writeTxn interface {
	SetEntry(e *badger.Entry) error
	Commit() error
	Discard()
}

// writeEntries commits entries in a single transaction when they fit.
// Batches larger than badger's transaction limit are split across
// consecutive transactions; a failure after the first commit returns
// storage.ErrPartialWrite.
func (c *Collection) writeEntries(entries []*badger.Entry) error {
	return commitInParts(entries, func() writeTxn { return c.backend.db.NewTransaction(true) }, c.logger)
}

func commitInParts(entries []*badger.Entry, begin func() writeTxn, logger *slog.Logger) error {
	tx := begin()
	defer func() { tx.Discard() }()

	committed, pending := 0, 0
	fail := func(err error) error {
		if committed == 0 {
			return err
		}
		return fmt.Errorf("%w: %d of %d entries committed: %w", storage.ErrPartialWrite, committed, len(entries), err)
	}

	for _, e := range entries {
		err := tx.SetEntry(e)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if committed == 0 {
				logger.Warn("batch exceeds a single transaction, committing in parts", "entries", len(entries))
			}
			if err := tx.Commit(); err != nil {
				return fail(err)
			}
			committed += pending
			pending = 0
			tx = begin()
			err = tx.SetEntry(e)
		}
		if err != nil {
			return fail(err)
		}
		pending++
	}
	if err := tx.Commit(); err != nil {
		return fail(err)
	}
	return nil
}

// Get retrieves a single embedded chunk by ID.
func (c *Collection) Get(ctx context.Context, id core.ID) (*core.EmbeddedChunk, error) {
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	var result *core.EmbeddedChunk
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeChunkKey(c.name, id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			result, err = storage.UnmarshalEmbeddedChunk(val)
			return err
		})
	}, false)
	return result, err
}

// Count returns the number of stored chunks.
func (c *Collection) Count(ctx context.Context) (int, error) {
	if c.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	var n int
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		n = countChunks(tx, c.name)
		return nil
	}, false)
	return n, err
}

// FindSimilar scans the collection and ranks chunks by cosine similarity.
func (c *Collection) FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*core.ChunkMatch, error) {
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", storage.ErrInvalidQuery, limit)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", storage.ErrInvalidQuery)
	}

	query := storage.NormalizeVector(vector)
	var results []*core.ChunkMatch

	err := c.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readInfo(tx, c.name)
		if err != nil {
			return err
		}
		if info != nil && info.Dimension != 0 && info.Dimension != len(query) {
			return fmt.Errorf("%w: query has %d components, collection %s expects %d",
				storage.ErrDimensionMismatch, len(query), c.name, info.Dimension)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChunkPrefix(c.name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var chunk *core.EmbeddedChunk
			err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalEmbeddedChunk(val)
				return err
			})
			if err != nil {
				return err
			}

			// Stored vectors are unit-length, so the dot product is the cosine.
			similarity := storage.DotProduct(query, chunk.Vector)
			if similarity >= minSimilarity {
				results = append(results, &core.ChunkMatch{Chunk: chunk, Score: similarity})
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(results, func(a, b *core.ChunkMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		return 0
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Persist flushes the database to disk.
func (c *Collection) Persist(ctx context.Context) error {
	if c.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return c.backend.Sync()
}

// Path returns the database directory.
func (c *Collection) Path() string {
	return c.backend.Path()
}

// Close releases the backend when the collection opened it.
func (c *Collection) Close() error {
	if !c.ownsBackend || c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}

func readInfo(tx *badger.Txn, name string) (*core.CollectionInfo, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var info *core.CollectionInfo
	err = item.Value(func(val []byte) error {
		info, err = storage.UnmarshalCollectionInfo(val)
		return err
	})
	return info, err
}

func countChunks(tx *badger.Txn, name string) int {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makeChunkPrefix(name)
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	n := 0
	for iter.Rewind(); iter.Valid(); iter.Next() {
		n++
	}
	return n
}
