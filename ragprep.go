// Package ragprep wires the configured storage backend, AI services and
// processing stages together for the ragprep commands.
package ragprep

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/ragprep/ai"
	"github.com/poiesic/ragprep/ai/openai"
	"github.com/poiesic/ragprep/annotate"
	"github.com/poiesic/ragprep/config"
	"github.com/poiesic/ragprep/ingestion"
	"github.com/poiesic/ragprep/search"
	"github.com/poiesic/ragprep/storage"
	"github.com/poiesic/ragprep/storage/badger"
	"github.com/poiesic/ragprep/storage/chromem"
)

// Workspace is an open vector store collection plus the AI services that
// read and write it.
type Workspace struct {
	cfg          *config.Config
	collection   storage.Collection
	provider     ai.AIProvider
	ownsProvider bool
	logger       *slog.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*workspaceOptions)

type workspaceOptions struct {
	provider   ai.AIProvider
	collection storage.Collection
}

// WithProvider uses provider instead of one built from the configuration.
// The caller keeps ownership of it.
func WithProvider(provider ai.AIProvider) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.provider = provider
	}
}

// WithCollection uses an already open collection. Close still closes it.
func WithCollection(collection storage.Collection) WorkspaceOption {
	return func(o *workspaceOptions) {
		o.collection = collection
	}
}

// Open validates cfg and opens its collection and AI provider.
func Open(cfg *config.Config, opts ...WorkspaceOption) (*Workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &workspaceOptions{}
	for _, opt := range opts {
		opt(options)
	}

	collection := options.collection
	if collection == nil {
		var err error
		collection, err = OpenCollection(cfg)
		if err != nil {
			return nil, err
		}
	}

	ws := &Workspace{
		cfg:        cfg,
		collection: collection,
		provider:   options.provider,
		logger:     slog.Default().With("component", "workspace"),
	}
	if ws.provider == nil {
		provider, err := NewProvider(cfg)
		if err != nil {
			collection.Close()
			return nil, err
		}
		ws.provider = provider
		ws.ownsProvider = true
	}
	return ws, nil
}

// OpenCollection opens the collection named by cfg.Store with the configured backend.
func OpenCollection(cfg *config.Config) (storage.Collection, error) {
	switch cfg.Store.Backend {
	case config.BackendBadger:
		return badger.OpenCollection(cfg.Store.PersistDir, cfg.Store.Collection)
	case config.BackendChromem:
		return chromem.OpenCollection(cfg.Store.PersistDir, cfg.Store.Collection,
			chromem.WithConcurrency(cfg.Embedding.Concurrency))
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
	}
}

// NewProvider creates the embedding and tagging services described by cfg.
func NewProvider(cfg *config.Config) (ai.AIProvider, error) {
	return openai.NewProvider(cfg.AIConfig())
}

// NewAnnotator builds an annotator over tagger using the configured circuit
// breaker and date languages.
func NewAnnotator(cfg *config.Config, tagger ai.EntityTagger) *annotate.Annotator {
	entities := annotate.NewEntityExtractor(tagger,
		annotate.WithCircuitBreaker(cfg.Tagger.MaxFailures, cfg.Tagger.Cooldown.Duration))
	dates := annotate.NewDateExtractor(annotate.NewDateparserSearcher())
	return annotate.NewAnnotator(entities, dates, annotate.WithLanguages(cfg.Dates.Languages...))
}

// Collection returns the open collection.
func (w *Workspace) Collection() storage.Collection {
	return w.collection
}

// Provider returns the AI services.
func (w *Workspace) Provider() ai.AIProvider {
	return w.provider
}

// NewPipeline builds the ingestion pipeline for the configured documents.
// Progress lines and the embedding progress bar go to progress.
func (w *Workspace) NewPipeline(progress io.Writer, opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	loader := ingestion.NewLoader(w.cfg.Docs.Dir,
		ingestion.WithGlob(w.cfg.Docs.Glob),
		ingestion.WithStrict(w.cfg.Docs.Strict))

	splitter, err := ingestion.NewCharacterSplitter(w.cfg.Chunking.Size, w.cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}

	batchSize := w.cfg.Embedding.BatchSize
	if batchSize < 1 {
		batchSize = ingestion.DefaultBatchSize
	}
	sinkOpts := []ingestion.SinkOption{
		ingestion.WithBatchSize(batchSize),
		ingestion.WithPoolSize(w.cfg.Embedding.Concurrency),
		ingestion.WithRetryPolicy(ingestion.RetryPolicy{
			MaxAttempts: w.cfg.Retry.MaxAttempts,
			BaseDelay:   w.cfg.Retry.Delay.Duration,
		}),
	}
	if progress != nil {
		sinkOpts = append(sinkOpts, ingestion.WithProgress(progress))
	}
	sink, err := ingestion.NewSink(w.collection, w.provider.Embedder(), sinkOpts...)
	if err != nil {
		return nil, err
	}

	return ingestion.NewPipeline(loader, splitter, sink,
		append([]ingestion.Option{ingestion.WithOutput(progress)}, opts...)...)
}

// NewRetriever builds a retriever over the collection.
func (w *Workspace) NewRetriever(opts ...search.Option) (*search.Retriever, error) {
	return search.NewRetriever(w.collection, w.provider.Embedder(), opts...)
}

// VectorStore exposes the collection as a langchaingo vector store that
// embeds through the workspace's embedder.
func (w *Workspace) VectorStore() *storage.VectorStore {
	return storage.NewVectorStore(w.collection, ai.AsLangchainEmbedder(w.provider.Embedder()))
}

// NewAnnotator builds an annotator using the workspace's tagging service.
func (w *Workspace) NewAnnotator() *annotate.Annotator {
	return NewAnnotator(w.cfg, w.provider.EntityTagger())
}

// Close releases the collection and, when the workspace created it, the provider.
func (w *Workspace) Close() error {
	var errs []error
	if w.ownsProvider {
		if err := w.provider.Close(); err != nil {
			w.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if err := w.collection.Close(); err != nil {
		w.logger.Error("error closing collection", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
