package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/poiesic/ragprep/ai/mock"
	"github.com/poiesic/ragprep/core"
	"github.com/poiesic/ragprep/storage"
	"github.com/poiesic/ragprep/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 32

var corpus = []string{
	"John Smith was admitted to Lille University Hospital.",
	"The quarterly report covers revenue and expenses.",
	"Maria flew from Paris to see the Yankees play.",
	"Hospital visiting hours are posted at the entrance.",
}

// seed stores one chunk per text, embedded with the mock embedder.
func seed(t *testing.T, texts ...string) (storage.Collection, *mock.MockEmbedder) {
	t.Helper()
	coll, err := badger.NewMemoryCollection("documents")
	require.NoError(t, err)
	t.Cleanup(func() { coll.Close() })

	embedder := mock.NewMockEmbedder()
	embedder.Dimension = dim

	chunks := make([]*core.EmbeddedChunk, len(texts))
	for i, text := range texts {
		chunks[i] = &core.EmbeddedChunk{
			Chunk:  core.Chunk{Source: "docs/corpus.txt", Index: i, Content: text},
			Vector: mock.GenerateDeterministicVector(text, dim),
		}
	}
	_, err = coll.Upsert(context.Background(), chunks...)
	require.NoError(t, err)
	return coll, embedder
}

func TestNewRetriever(t *testing.T) {
	coll, embedder := seed(t)

	t.Run("valid configuration", func(t *testing.T) {
		r, err := NewRetriever(coll, embedder)
		require.NoError(t, err)
		assert.NotNil(t, r)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		r, err := NewRetriever(coll, embedder, WithLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, slog.Default(), r.logger)
	})

	t.Run("nil collection", func(t *testing.T) {
		_, err := NewRetriever(nil, embedder)
		assert.Equal(t, ErrCollectionRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewRetriever(coll, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("similarity out of range", func(t *testing.T) {
		_, err := NewRetriever(coll, embedder, WithMinSimilarity(1.5))
		assert.ErrorIs(t, err, storage.ErrInvalidQuery)
	})
}

func TestQuery_ExactTextRanksFirst(t *testing.T) {
	coll, embedder := seed(t, corpus...)
	r, err := NewRetriever(coll, embedder)
	require.NoError(t, err)

	results, err := r.Query(context.Background(), corpus[2], 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, corpus[2], results[0].Chunk.Chunk.Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-4)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestQuery_EmptyCollection(t *testing.T) {
	coll, embedder := seed(t)
	r, err := NewRetriever(coll, embedder)
	require.NoError(t, err)

	results, err := r.Query(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQuery_KLargerThanCollection(t *testing.T) {
	coll, embedder := seed(t, corpus...)
	r, err := NewRetriever(coll, embedder)
	require.NoError(t, err)

	results, err := r.Query(context.Background(), "hospital", 10)
	require.NoError(t, err)
	assert.Len(t, results, len(corpus))
}

func TestQuery_InvalidInput(t *testing.T) {
	coll, embedder := seed(t, corpus...)
	r, err := NewRetriever(coll, embedder)
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = r.Query(context.Background(), "hospital", 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	assert.Zero(t, embedder.CallCount())
}

func TestQuery_EmbedderError(t *testing.T) {
	coll, embedder := seed(t, corpus...)
	boom := errors.New("service down")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}
	r, err := NewRetriever(coll, embedder)
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "hospital", 3)
	assert.ErrorIs(t, err, boom)
}

func TestQuery_DimensionMismatch(t *testing.T) {
	coll, _ := seed(t, corpus...)
	other := mock.NewMockEmbedder()
	other.Dimension = dim / 2
	r, err := NewRetriever(coll, other)
	require.NoError(t, err)

	_, err = r.Query(context.Background(), "hospital", 3)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestQuery_KeywordBoost(t *testing.T) {
	ctx := context.Background()
	coll, embedder := seed(t, corpus...)
	query := "Where is the hospital entrance?"

	plain, err := NewRetriever(coll, embedder)
	require.NoError(t, err)
	raw, err := plain.Query(ctx, query, len(corpus))
	require.NoError(t, err)
	rawScores := make(map[string]float32, len(raw))
	for _, m := range raw {
		rawScores[m.Chunk.Chunk.Content] = m.Score
	}

	boosted, err := NewRetriever(coll, embedder, WithKeywordBoost(true))
	require.NoError(t, err)
	monitor := &recordingMonitor{}
	results, err := boosted.QueryWithMonitor(ctx, query, 2, monitor)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	assert.Equal(t, query, monitor.query)
	assert.Equal(t, dim, monitor.dimension)
	assert.Len(t, monitor.candidates, len(corpus), "boosting widens the candidate pool")
	require.Len(t, monitor.keywordHits, 1)
	hit := monitor.keywordHits[0]
	assert.Equal(t, corpus[3], hit.Chunk.Chunk.Content)
	assert.InDelta(t, rawScores[corpus[3]]+keywordBoost, hit.Score, 1e-5)
	assert.Len(t, monitor.results, 2)
}

func TestQuery_MinSimilarity(t *testing.T) {
	coll, embedder := seed(t, corpus...)
	r, err := NewRetriever(coll, embedder, WithMinSimilarity(0.99))
	require.NoError(t, err)

	results, err := r.Query(context.Background(), corpus[0], 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, corpus[0], results[0].Chunk.Chunk.Content)
}

func TestAsSchemaRetriever(t *testing.T) {
	coll, embedder := seed(t, corpus...)
	r, err := NewRetriever(coll, embedder)
	require.NoError(t, err)

	docs, err := r.AsSchemaRetriever(2).GetRelevantDocuments(context.Background(), corpus[1])
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, corpus[1], docs[0].PageContent)
	assert.Equal(t, "docs/corpus.txt", docs[0].Metadata[core.MetadataSource])
	assert.Equal(t, "1", docs[0].Metadata[core.MetadataIndex])
	assert.InDelta(t, 1.0, docs[0].Score, 1e-4)
}

func TestAsSchemaRetriever_ReportsToMonitor(t *testing.T) {
	coll, embedder := seed(t, corpus...)
	monitor := &recordingMonitor{}
	r, err := NewRetriever(coll, embedder, WithMonitor(monitor))
	require.NoError(t, err)

	docs, err := r.AsSchemaRetriever(3).GetRelevantDocuments(context.Background(), corpus[2])
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, corpus[2], monitor.query)
	assert.Equal(t, dim, monitor.dimension)
	assert.Len(t, monitor.results, 3)
}

func TestContainsAllQueryWords(t *testing.T) {
	tests := []struct {
		content, query string
		want           bool
	}{
		{"Hospital visiting hours are posted.", "hospital hours", true},
		{"Hospital visiting hours are posted.", "When are the hospital hours?", true},
		{"Hospital visiting hours are posted.", "hospital parking", false},
		{"anything", "the of and", false},
		{"Lille (France), 2024", "lille france", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, containsAllQueryWords(tt.content, tt.query), "%q in %q", tt.query, tt.content)
	}
}

type recordingMonitor struct {
	query       string
	dimension   int
	candidates  []*core.ChunkMatch
	keywordHits []*core.ChunkMatch
	results     []*core.ChunkMatch
}

func (m *recordingMonitor) Start(query string, _ int)         { m.query = query }
func (m *recordingMonitor) AfterEmbedding(dimension int)      { m.dimension = dimension }
func (m *recordingMonitor) AfterSearch(c []*core.ChunkMatch)  { m.candidates = c }
func (m *recordingMonitor) KeywordHit(match *core.ChunkMatch) { m.keywordHits = append(m.keywordHits, match) }
func (m *recordingMonitor) Finish(results []*core.ChunkMatch) { m.results = results }
