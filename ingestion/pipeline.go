package ingestion

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Pipeline loads a documents directory, splits it into chunks and stores
// their embeddings.
type Pipeline struct {
	loader   *Loader
	splitter *CharacterSplitter
	sink     *Sink
	output   io.Writer
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithOutput sets where progress lines are printed. Default is io.Discard.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) error {
		if w == nil {
			w = io.Discard
		}
		p.output = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "pipeline")
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(loader *Loader, splitter *CharacterSplitter, sink *Sink, opts ...Option) (*Pipeline, error) {
	if loader == nil || splitter == nil || sink == nil {
		return nil, ErrStageRequired
	}

	p := &Pipeline{
		loader:   loader,
		splitter: splitter,
		sink:     sink,
		output:   io.Discard,
		logger:   slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run executes the load, split and embed stages in order.
// Each stage completes before the next begins.
func (p *Pipeline) Run(ctx context.Context) (Result, error) {
	fmt.Fprintf(p.output, "Loading documents from %s...\n", p.loader.Dir())
	docs, report, err := p.loader.LoadWithReport(ctx)
	if err != nil {
		return Result{}, err
	}
	p.logger.Info("loaded documents", "count", len(docs), "skipped", len(report.Skipped))

	fmt.Fprintln(p.output, "Splitting documents into chunks...")
	chunks := p.splitter.SplitDocuments(docs)
	p.logger.Info("split documents", "chunks", len(chunks))

	fmt.Fprintln(p.output, "Creating embeddings and storing in the vector store...")
	result, err := p.sink.Write(ctx, chunks)
	if err != nil {
		return Result{}, err
	}

	result.Documents = len(docs)
	result.Skipped = report.Skipped
	if result.PersistPath != "" {
		fmt.Fprintf(p.output, "Vector store created and saved to %s\n", result.PersistPath)
	}
	return result, nil
}
