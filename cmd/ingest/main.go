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


// Command ingest loads a documents directory, splits it into chunks, embeds
// them and persists the vectors to the configured store.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/poiesic/ragprep"
	"github.com/poiesic/ragprep/config"
	"github.com/poiesic/ragprep/internal/cmdutil"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(stdout io.Writer) *cli.App {
	var cfg *config.Config
	return &cli.App{
		Name:  "ingest",
		Usage: "Embed a directory of text documents into a persistent vector store",
		Flags: cmdutil.Flags(
			cmdutil.GlobalFlags(),
			cmdutil.IngestFlags(),
			cmdutil.StoreFlags(),
			cmdutil.EmbeddingFlags(),
		),
		Before: cmdutil.Before(&cfg),
		Action: func(c *cli.Context) error {
			return ingest(c.Context, cfg, stdout)
		},
	}
}

func ingest(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	ws, err := ragprep.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}
	defer ws.Close()

	pipeline, err := ws.NewPipeline(stdout)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	for _, skipped := range result.Skipped {
		fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", skipped.Path, skipped.Err)
	}
	fmt.Fprintf(stdout, "Vectors stored: %d\n", result.Total)
	fmt.Fprintf(stdout, "Persist dir exists: %t\n", result.PersistPathExists)
	return nil
}
