// Command query searches a persisted vector store for the chunks most
// similar to a question.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/poiesic/ragprep"
	"github.com/poiesic/ragprep/config"
	"github.com/poiesic/ragprep/core"
	"github.com/poiesic/ragprep/internal/cmdutil"
	"github.com/poiesic/ragprep/search"
	"github.com/poiesic/ragprep/storage"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout, stderr io.Writer) *cli.App {
	var cfg *config.Config
	return &cli.App{
		Name:      "query",
		Usage:     "Find the stored chunks most similar to a question",
		ArgsUsage: "<question>",
		Flags: cmdutil.Flags(
			cmdutil.GlobalFlags(),
			[]cli.Flag{
				&cli.IntFlag{Name: "k", Usage: "Number of chunks to return", Value: 4},
				&cli.Float64Flag{Name: "min-similarity", Usage: "Drop chunks below this cosine similarity", Value: -1},
				&cli.BoolFlag{Name: "keyword-boost", Usage: "Rank chunks containing every query word higher"},
				&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Trace the query stages on stderr"},
			},
			cmdutil.StoreFlags(),
			cmdutil.EmbeddingFlags(),
		),
		Before: cmdutil.Before(&cfg),
		Action: func(c *cli.Context) error {
			question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
			if question == "" {
				return fmt.Errorf("a question is required")
			}

			opts := queryOptions{
				k:             c.Int("k"),
				minSimilarity: float32(c.Float64("min-similarity")),
				keywordBoost:  c.Bool("keyword-boost"),
			}
			if c.Bool("verbose") {
				opts.monitor = &traceMonitor{w: stderr}
			}
			return query(c.Context, cfg, question, opts, stdout)
		},
	}
}

type queryOptions struct {
	k             int
	minSimilarity float32
	keywordBoost  bool
	monitor       search.QueryMonitor
}

func query(ctx context.Context, cfg *config.Config, question string, opts queryOptions, stdout io.Writer) error {
	if opts.k < 1 {
		return fmt.Errorf("%w: got %d", search.ErrInvalidLimit, opts.k)
	}
	if opts.minSimilarity < -1 || opts.minSimilarity > 1 {
		return fmt.Errorf("%w: minimum similarity %v outside [-1, 1]", storage.ErrInvalidQuery, opts.minSimilarity)
	}
	if _, err := os.Stat(cfg.Store.PersistDir); err != nil {
		return fmt.Errorf("no vector store at %s: %w", cfg.Store.PersistDir, err)
	}

	ws, err := ragprep.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer ws.Close()

	retriever, err := newRetriever(ws, opts)
	if err != nil {
		return err
	}

	docs, err := retriever.GetRelevantDocuments(ctx, question)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Found %d hits\n", len(docs))
	for i, doc := range docs {
		fmt.Fprintf(stdout, "%d: %v #%v [%0.3f]\n%s\n", i,
			doc.Metadata[core.MetadataSource], doc.Metadata[core.MetadataIndex], doc.Score, doc.PageContent)
	}
	return nil
}

// newRetriever searches the vector store directly unless keyword
// re-ranking or stage tracing needs the search package.
func newRetriever(ws *ragprep.Workspace, opts queryOptions) (schema.Retriever, error) {
	if !opts.keywordBoost && opts.monitor == nil {
		return vectorstores.ToRetriever(ws.VectorStore(), opts.k,
			vectorstores.WithScoreThreshold(opts.minSimilarity)), nil
	}

	r, err := ws.NewRetriever(
		search.WithMinSimilarity(opts.minSimilarity),
		search.WithKeywordBoost(opts.keywordBoost),
		search.WithMonitor(opts.monitor),
	)
	if err != nil {
		return nil, err
	}
	return r.AsSchemaRetriever(opts.k), nil
}

// traceMonitor prints each query stage.
type traceMonitor struct {
	w io.Writer
}

func (m *traceMonitor) Start(query string, k int) {
	fmt.Fprintf(m.w, "query: %q (k=%d)\n", query, k)
}

func (m *traceMonitor) AfterEmbedding(dimension int) {
	fmt.Fprintf(m.w, "embedded query: %d dimensions\n", dimension)
}

func (m *traceMonitor) AfterSearch(candidates []*core.ChunkMatch) {
	fmt.Fprintf(m.w, "candidates: %d\n", len(candidates))
}

func (m *traceMonitor) KeywordHit(match *core.ChunkMatch) {
	fmt.Fprintf(m.w, "keyword hit: %s #%d\n", match.Chunk.Chunk.Source, match.Chunk.Chunk.Index)
}

func (m *traceMonitor) Finish(results []*core.ChunkMatch) {
	fmt.Fprintf(m.w, "results: %d\n", len(results))
}
