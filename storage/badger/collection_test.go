package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/poiesic/ragprep/core"
	"github.com/poiesic/ragprep/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChunk(source string, index int, content string, vector []float32) *core.EmbeddedChunk {
	return &core.EmbeddedChunk{
		Chunk:  core.Chunk{Source: source, Index: index, Offset: index * 800, Content: content},
		Vector: vector,
	}
}

func TestNewCollection_InvalidName(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewCollection(backend, "bad:name")
	assert.ErrorIs(t, err, core.ErrInvalidCollectionName)
}

func TestCollection_InfoDefaults(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	info, err := coll.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "documents", info.Name)
	assert.Equal(t, core.DistanceCosine, info.Metric)
	assert.Zero(t, info.Dimension)
	assert.Zero(t, info.Count)
}

func TestCollection_UpsertAndGet(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	ctx := context.Background()
	added, err := coll.Upsert(ctx,
		newChunk("docs/a.txt", 0, "first", []float32{3, 4}),
		newChunk("docs/a.txt", 1, "second", []float32{0, 2}),
	)
	require.NoError(t, err)
	require.Len(t, added, 2)

	for _, c := range added {
		assert.NotZero(t, c.Id)
		assert.Equal(t, c.Chunk.ID(), c.Id)
		assert.False(t, c.InsertedAt.IsZero())
	}

	got, err := coll.Get(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Chunk.Content)
	assert.Equal(t, "docs/a.txt", got.Chunk.Source)
	// stored unit-length
	assert.InDelta(t, 0.6, got.Vector[0], 1e-6)
	assert.InDelta(t, 0.8, got.Vector[1], 1e-6)

	info, err := coll.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Dimension)
	assert.Equal(t, 2, info.Count)
}

func TestCollection_UpsertIsIdempotent(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	ctx := context.Background()
	_, err = coll.Upsert(ctx, newChunk("docs/a.txt", 0, "same", []float32{1, 0}))
	require.NoError(t, err)
	_, err = coll.Upsert(ctx, newChunk("docs/a.txt", 0, "same", []float32{1, 0}))
	require.NoError(t, err)

	n, err := coll.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollection_GetNotFound(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	_, err = coll.Get(context.Background(), core.ID(42))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCollection_DimensionMismatch(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	ctx := context.Background()

	t.Run("within one batch nothing is written", func(t *testing.T) {
		_, err := coll.Upsert(ctx,
			newChunk("docs/a.txt", 0, "three", []float32{1, 0, 0}),
			newChunk("docs/a.txt", 1, "two", []float32{1, 0}),
		)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

		n, err := coll.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("against fixed dimension", func(t *testing.T) {
		_, err := coll.Upsert(ctx, newChunk("docs/a.txt", 0, "fixed", []float32{1, 0, 0}))
		require.NoError(t, err)

		_, err = coll.Upsert(ctx, newChunk("docs/b.txt", 0, "wrong", []float32{1, 0}))
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

		_, err = coll.FindSimilar(ctx, []float32{1, 0}, 0, 5)
		assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	})
}

func TestCollection_UpsertRejectsInvalidChunk(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	_, err = coll.Upsert(context.Background(), newChunk("docs/a.txt", 0, "", []float32{1}))
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestCollection_FindSimilar(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	ctx := context.Background()
	_, err = coll.Upsert(ctx,
		newChunk("docs/a.txt", 0, "High similarity", []float32{1.0, 0.0, 0.0}),
		newChunk("docs/a.txt", 1, "Medium similarity", []float32{0.7, 0.3, 0.0}),
		newChunk("docs/a.txt", 2, "Low similarity", []float32{0.3, 0.7, 0.0}),
		newChunk("docs/a.txt", 3, "Unrelated", []float32{0.0, 0.0, 1.0}),
	)
	require.NoError(t, err)

	// Non-unit query: scaling must not change the ranking.
	queryVector := []float32{5.0, 0.0, 0.0}

	t.Run("ordered by score", func(t *testing.T) {
		results, err := coll.FindSimilar(ctx, queryVector, 0.1, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "High similarity", results[0].Chunk.Chunk.Content)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
		for i := 0; i < len(results)-1; i++ {
			assert.GreaterOrEqual(t, results[i].Score, results[i+1].Score)
		}
	})

	t.Run("high threshold", func(t *testing.T) {
		results, err := coll.FindSimilar(ctx, queryVector, 0.95, 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("limit", func(t *testing.T) {
		results, err := coll.FindSimilar(ctx, queryVector, -1, 2)
		require.NoError(t, err)
		assert.Len(t, results, 2)
	})

	t.Run("invalid limit", func(t *testing.T) {
		_, err := coll.FindSimilar(ctx, queryVector, 0, 0)
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestCollection_FindSimilar_Empty(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	defer coll.Close()

	results, err := coll.FindSimilar(context.Background(), []float32{0.1, 0.2, 0.3}, 0.5, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCollection_Namespaces(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	docs, err := NewCollection(backend, "docs")
	require.NoError(t, err)
	// "docs2" shares a textual prefix with "docs"
	docs2, err := NewCollection(backend, "docs2")
	require.NoError(t, err)

	_, err = docs.Upsert(ctx, newChunk("a.txt", 0, "in docs", []float32{1, 0}))
	require.NoError(t, err)
	_, err = docs2.Upsert(ctx, newChunk("a.txt", 0, "in docs2", []float32{1, 0, 0}))
	require.NoError(t, err)

	n, err := docs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := docs.FindSimilar(ctx, []float32{1, 0}, 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "in docs", results[0].Chunk.Chunk.Content)
}

func TestOpenCollection_PersistAndReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	coll, err := OpenCollection(dir, "documents")
	require.NoError(t, err)

	chunks := make([]*core.EmbeddedChunk, 20)
	for i := range chunks {
		chunks[i] = newChunk("docs/a.txt", i, fmt.Sprintf("chunk %d", i), []float32{float32(i + 1), 1, 0})
	}
	_, err = coll.Upsert(ctx, chunks...)
	require.NoError(t, err)
	require.NoError(t, coll.Persist(ctx))
	assert.Equal(t, dir, coll.Path())
	require.NoError(t, coll.Close())

	reopened, err := OpenCollection(dir, "documents")
	require.NoError(t, err)
	defer reopened.Close()

	info, err := reopened.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, info.Count)
	assert.Equal(t, 3, info.Dimension)

	results, err := reopened.FindSimilar(ctx, []float32{20, 1, 0}, 0, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk 19", results[0].Chunk.Chunk.Content)
}

func TestCollection_ClosedOperations(t *testing.T) {
	coll, err := NewMemoryCollection("documents")
	require.NoError(t, err)
	require.NoError(t, coll.Close())

	ctx := context.Background()
	_, err = coll.Count(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = coll.Upsert(ctx, newChunk("a.txt", 0, "x", []float32{1}))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.ErrorIs(t, coll.Persist(ctx), storage.ErrStorageClosed)
	assert.NoError(t, coll.Close())
}
