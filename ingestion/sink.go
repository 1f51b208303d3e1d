package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/ragprep/ai"
	"github.com/poiesic/ragprep/core"
	"github.com/poiesic/ragprep/storage"
)

// DefaultBatchSize is the number of chunks sent per embedding request.
const DefaultBatchSize = 64

// Result describes a finished ingestion run.
type Result struct {
	// Documents and Chunks count what the run loaded and split.
	Documents int
	Chunks    int

	// Skipped lists files the loader could not decode.
	Skipped []SkippedFile

	// Stored is the number of chunks this run wrote.
	Stored int

	// Total is the collection's vector count after the write.
	Total int

	// PersistPath is the store directory and PersistPathExists reports
	// whether it exists after persisting. Both are empty in memory.
	PersistPath       string
	PersistPathExists bool
}

// Sink embeds chunks and writes them to a vector store collection.
type Sink struct {
	collection storage.Collection
	embedder   ai.Embedder
	batchSize  int
	poolSize   int
	retry      RetryPolicy
	progress   io.Writer
	logger     *slog.Logger
}

// SinkOption configures a Sink.
type SinkOption func(*Sink) error

// WithBatchSize sets how many chunks go into one embedding request.
func WithBatchSize(n int) SinkOption {
	return func(s *Sink) error {
		if n < 1 {
			return fmt.Errorf("batch size must be positive, got %d", n)
		}
		s.batchSize = n
		return nil
	}
}

// WithPoolSize sets how many embedding requests may run at once.
// Default is 1, which embeds batches sequentially.
func WithPoolSize(size int) SinkOption {
	return func(s *Sink) error {
		s.poolSize = max(size, 1)
		return nil
	}
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(policy RetryPolicy) SinkOption {
	return func(s *Sink) error {
		if policy.MaxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		s.retry = policy
		return nil
	}
}

// WithProgress reports embedding progress to w.
func WithProgress(w io.Writer) SinkOption {
	return func(s *Sink) error {
		s.progress = w
		return nil
	}
}

// NewSink creates a sink writing into collection.
func NewSink(collection storage.Collection, embedder ai.Embedder, opts ...SinkOption) (*Sink, error) {
	if collection == nil {
		return nil, ErrCollectionRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Sink{
		collection: collection,
		embedder:   embedder,
		batchSize:  DefaultBatchSize,
		poolSize:   1,
		retry:      DefaultRetryPolicy(),
		logger:     slog.Default().With("component", "sink"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write embeds every chunk, then stores all of them in one batch and
// persists the collection. If any batch fails, nothing is written.
func (s *Sink) Write(ctx context.Context, chunks []core.Chunk) (Result, error) {
	vectors, err := s.embedAll(ctx, chunks)
	if err != nil {
		return Result{}, err
	}

	stored := 0
	if len(chunks) > 0 {
		now := time.Now().UTC()
		embedded := make([]*core.EmbeddedChunk, len(chunks))
		for i := range chunks {
			embedded[i] = &core.EmbeddedChunk{
				Id:         chunks[i].ID(),
				Chunk:      chunks[i],
				Vector:     vectors[i],
				InsertedAt: now,
			}
		}

		written, err := s.collection.Upsert(ctx, embedded...)
		if err != nil {
			return Result{}, fmt.Errorf("store chunks: %w", err)
		}
		stored = len(written)
	}

	if err := s.collection.Persist(ctx); err != nil {
		return Result{}, fmt.Errorf("persist collection: %w", err)
	}

	total, err := s.collection.Count(ctx)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Chunks:      len(chunks),
		Stored:      stored,
		Total:       total,
		PersistPath: s.collection.Path(),
	}
	if result.PersistPath != "" {
		_, statErr := os.Stat(result.PersistPath)
		result.PersistPathExists = statErr == nil
	}

	s.logger.Info("stored chunks", "stored", stored, "total", total, "path", result.PersistPath)
	return result, nil
}

// embedAll embeds chunks batch by batch through an ants pool and returns
// the vectors in chunk order.
func (s *Sink) embedAll(ctx context.Context, chunks []core.Chunk) ([][]float32, error) {
	vectors := make([][]float32, len(chunks))
	if len(chunks) == 0 {
		return vectors, nil
	}

	pool, err := ants.NewPool(s.poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var tracker *ProgressTracker
	if s.progress != nil {
		tracker = NewProgressTracker(s.progress, len(chunks), s.batchSize)
		tracker.Start()
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for start := 0; start < len(chunks); start += s.batchSize {
		end := min(start+s.batchSize, len(chunks))
		batch := chunks[start:end]
		offset := start

		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			batchVectors, err := s.embedBatch(ctx, batch)
			if err != nil {
				fail(fmt.Errorf("batch at chunk %d (%s): %w", offset, batch[0].Source, err))
				return
			}
			copy(vectors[offset:], batchVectors)
			if tracker != nil {
				tracker.Increment(len(batch))
			}
		})
		if err != nil {
			wg.Done()
			fail(err)
			break
		}
	}
	wg.Wait()

	if tracker != nil {
		tracker.Finish()
	}
	if firstErr != nil {
		s.logger.Error("embedding failed", "err", firstErr)
		return nil, firstErr
	}
	return vectors, nil
}

func (s *Sink) embedBatch(ctx context.Context, batch []core.Chunk) ([][]float32, error) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Content
	}

	policy := s.retry
	isPermanent := policy.IsPermanent
	if isPermanent == nil {
		isPermanent = ai.IsPermanent
	}
	policy.IsPermanent = func(err error) bool {
		return errors.Is(err, errVectorCount) || isPermanent(err)
	}

	var vectors [][]float32
	err := policy.Do(ctx, func() error {
		v, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			s.logger.Warn("embedding request failed", "chunks", len(texts), "err", err)
			return err
		}
		if len(v) != len(texts) {
			return fmt.Errorf("%w: sent %d texts, received %d vectors", errVectorCount, len(texts), len(v))
		}
		vectors = v
		return nil
	})
	return vectors, err
}
