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


// Package cmdutil holds the flags and start-up code shared by the ragprep commands.
package cmdutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/poiesic/ragprep/config"
	"github.com/urfave/cli/v2"
)

// Flag names.
const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"

	FlagDocs         = "docs"
	FlagGlob         = "glob"
	FlagStrict       = "strict"
	FlagChunkSize    = "chunk-size"
	FlagChunkOverlap = "chunk-overlap"

	FlagBackend    = "backend"
	FlagPersistDir = "persist-dir"
	FlagCollection = "collection"

	FlagEmbeddingHost     = "embedding-host"
	FlagEmbeddingModel    = "embedding-model"
	FlagAPIKey            = "api-key"
	FlagBatchSize         = "batch-size"
	FlagConcurrency       = "concurrency"
	FlagRequestsPerSecond = "requests-per-second"
	FlagMaxRetries        = "max-retries"
	FlagRetryDelay        = "retry-delay"

	FlagTaggerBackend = "tagger-backend"
	FlagTaggerHost    = "tagger-host"
	FlagTaggerModel   = "tagger-model"
	FlagHFToken       = "hf-token"
	FlagLanguages     = "languages"
)

// GlobalFlags are accepted by every command. Flags carry no default values
// so that only explicitly set ones override the configuration file.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    FlagConfig,
			Aliases: []string{"c"},
			Usage:   "Path to a TOML configuration file",
			EnvVars: []string{"RAGPREP_CONFIG"},
		},
		&cli.StringFlag{
			Name:    FlagLogLevel,
			Aliases: []string{"l"},
			Usage:   "Set logging level (debug, info, warn, error) (default: warn)",
			EnvVars: []string{config.EnvLogLevel},
		},
	}
}

// StoreFlags select the vector store collection.
func StoreFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagBackend, Usage: "Vector store backend: badger or chromem (default: badger)", EnvVars: []string{config.EnvStoreBackend}},
		&cli.StringFlag{Name: FlagPersistDir, Usage: "Vector store directory (default: db/chroma_db)", EnvVars: []string{config.EnvPersistDir}},
		&cli.StringFlag{Name: FlagCollection, Usage: "Collection name (default: documents)", EnvVars: []string{config.EnvCollection}},
	}
}

// EmbeddingFlags configure the embedding service.
func EmbeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagEmbeddingHost, Usage: "OpenAI-compatible embedding API base URL", EnvVars: []string{config.EnvOpenAIBaseURL}},
		&cli.StringFlag{Name: FlagEmbeddingModel, Usage: "Embedding model name (default: text-embedding-3-small)", EnvVars: []string{config.EnvEmbeddingModel}},
		&cli.StringFlag{Name: FlagAPIKey, Usage: "Embedding service API key", EnvVars: []string{config.EnvOpenAIKey}},
		&cli.IntFlag{Name: FlagBatchSize, Usage: "Chunks per embedding request (default: 64)"},
		&cli.Float64Flag{Name: FlagRequestsPerSecond, Usage: "Cap on embedding requests per second, 0 for none"},
	}
}

// IngestFlags configure loading, splitting and embedding retries.
func IngestFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagDocs, Aliases: []string{"d"}, Usage: "Documents directory (default: docs)", EnvVars: []string{config.EnvDocsDir}},
		&cli.StringFlag{Name: FlagGlob, Usage: "File name pattern (default: *.txt)", EnvVars: []string{config.EnvDocsGlob}},
		&cli.BoolFlag{Name: FlagStrict, Usage: "Fail on the first undecodable file instead of skipping it"},
		&cli.IntFlag{Name: FlagChunkSize, Usage: "Maximum chunk size in characters (default: 1000)", EnvVars: []string{config.EnvChunkSize}},
		&cli.IntFlag{Name: FlagChunkOverlap, Usage: "Characters shared by consecutive chunks (default: 200)", EnvVars: []string{config.EnvChunkOverlap}},
		&cli.IntFlag{Name: FlagConcurrency, Usage: "Embedding requests in flight (default: 1)"},
		&cli.IntFlag{Name: FlagMaxRetries, Usage: "Attempts per embedding batch (default: 5)", EnvVars: []string{config.EnvMaxAttempts}},
		&cli.DurationFlag{Name: FlagRetryDelay, Usage: "Base delay for exponential backoff (default: 1s)"},
	}
}

// TaggerFlags configure entity tagging and date languages.
func TaggerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: FlagTaggerBackend, Usage: "Entity tagger: huggingface or openai (default: huggingface)", EnvVars: []string{config.EnvTaggerBackend}},
		&cli.StringFlag{Name: FlagTaggerHost, Usage: "Entity tagger base URL", EnvVars: []string{config.EnvTaggerHost}},
		&cli.StringFlag{Name: FlagTaggerModel, Usage: "Entity tagger model (default: dslim/bert-base-NER)", EnvVars: []string{config.EnvTaggerModel}},
		&cli.StringFlag{Name: FlagHFToken, Usage: "Hugging Face API token", EnvVars: []string{config.EnvHFToken}},
		&cli.StringSliceFlag{Name: FlagLanguages, Usage: "Date languages, e.g. --languages en --languages fr (default: en)"},
	}
}

// Flags joins flag groups.
func Flags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Before returns a cli.BeforeFunc that builds the configuration, stores it
// in *dst and installs the logger. Precedence, lowest first: defaults,
// configuration file, environment, flags.
func Before(dst **config.Config) cli.BeforeFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load(c.String(FlagConfig))
		if err != nil {
			return err
		}
		ApplyFlags(c, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := SetupLogger(os.Stderr, cfg.Logging.Level); err != nil {
			return err
		}
		*dst = cfg
		return nil
	}
}

// ApplyFlags copies every explicitly set flag into cfg.
func ApplyFlags(c *cli.Context, cfg *config.Config) {
	strs := map[string]*string{
		FlagLogLevel:       &cfg.Logging.Level,
		FlagDocs:           &cfg.Docs.Dir,
		FlagGlob:           &cfg.Docs.Glob,
		FlagBackend:        &cfg.Store.Backend,
		FlagPersistDir:     &cfg.Store.PersistDir,
		FlagCollection:     &cfg.Store.Collection,
		FlagEmbeddingHost:  &cfg.Embedding.Host,
		FlagEmbeddingModel: &cfg.Embedding.Model,
		FlagAPIKey:         &cfg.Embedding.APIKey,
		FlagTaggerBackend:  &cfg.Tagger.Backend,
		FlagTaggerHost:     &cfg.Tagger.Host,
		FlagTaggerModel:    &cfg.Tagger.Model,
		FlagHFToken:        &cfg.Tagger.Token,
	}
	for name, dst := range strs {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}

	ints := map[string]*int{
		FlagChunkSize:    &cfg.Chunking.Size,
		FlagChunkOverlap: &cfg.Chunking.Overlap,
		FlagBatchSize:    &cfg.Embedding.BatchSize,
		FlagConcurrency:  &cfg.Embedding.Concurrency,
		FlagMaxRetries:   &cfg.Retry.MaxAttempts,
	}
	for name, dst := range ints {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}

	if c.IsSet(FlagStrict) {
		cfg.Docs.Strict = c.Bool(FlagStrict)
	}
	if c.IsSet(FlagRequestsPerSecond) {
		cfg.Embedding.RequestsPerSecond = c.Float64(FlagRequestsPerSecond)
	}
	if c.IsSet(FlagRetryDelay) {
		cfg.Retry.Delay = config.Duration{Duration: c.Duration(FlagRetryDelay)}
	}
	if c.IsSet(FlagLanguages) {
		var langs []string
		for _, v := range c.StringSlice(FlagLanguages) {
			langs = append(langs, config.SplitList(v)...)
		}
		cfg.Dates.Languages = langs
	}
}

// SetupLogger installs a text logger on w at the named level.
func SetupLogger(w io.Writer, levelName string) error {
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelName)
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}
