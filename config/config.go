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


// Package config holds the settings shared by the ragprep commands.
//
// A Config starts from Default, is overlaid by an optional TOML file and then
// by environment variables. Commands apply their flags last and call
// Validate before using it. The result is passed explicitly to the
// components that need it and is not modified afterwards.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/poiesic/ragprep/ai"
)

// Store backends.
const (
	BackendBadger  = "badger"
	BackendChromem = "chromem"
)

// Duration is a time.Duration written as a string ("1s", "250ms") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the complete ragprep configuration.
type Config struct {
	Docs      DocsConfig      `toml:"docs"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Tagger    TaggerConfig    `toml:"tagger"`
	Dates     DatesConfig     `toml:"dates"`
	Retry     RetryConfig     `toml:"retry"`
	Logging   LoggingConfig   `toml:"logging"`
}

// DocsConfig selects the documents to ingest.
type DocsConfig struct {
	Dir    string `toml:"dir"`
	Glob   string `toml:"glob"`
	Strict bool   `toml:"strict"` // fail on the first undecodable file
}

// ChunkingConfig sets the splitter window, in characters.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// StoreConfig locates the vector store collection.
type StoreConfig struct {
	Backend    string `toml:"backend"`
	PersistDir string `toml:"persist_dir"`
	Collection string `toml:"collection"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	Host              string  `toml:"host"`
	Model             string  `toml:"model"`
	APIKey            string  `toml:"api_key"`
	BatchSize         int     `toml:"batch_size"`
	Concurrency       int     `toml:"concurrency"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// TaggerConfig configures the entity tagging service and its circuit breaker.
type TaggerConfig struct {
	Backend     string   `toml:"backend"`
	Host        string   `toml:"host"`
	Model       string   `toml:"model"`
	Token       string   `toml:"token"`
	MaxFailures uint32   `toml:"max_failures"`
	Cooldown    Duration `toml:"cooldown"`
}

// DatesConfig configures date extraction.
type DatesConfig struct {
	Languages []string `toml:"languages"`
}

// RetryConfig configures retries of transient embedding failures.
type RetryConfig struct {
	MaxAttempts int      `toml:"max_attempts"`
	Delay       Duration `toml:"delay"`
}

// LoggingConfig sets the log level: debug, info, warn or error.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when nothing else is given.
func Default() *Config {
	ac := ai.DefaultConfig()
	return &Config{
		Docs:     DocsConfig{Dir: "docs", Glob: "*.txt"},
		Chunking: ChunkingConfig{Size: 1000, Overlap: 200},
		Store: StoreConfig{
			Backend:    BackendBadger,
			PersistDir: "db/chroma_db",
			Collection: "documents",
		},
		Embedding: EmbeddingConfig{
			Host:        ac.EmbeddingHost,
			Model:       ac.EmbeddingModel,
			BatchSize:   ac.EmbeddingBatchSize,
			Concurrency: 1,
		},
		Tagger: TaggerConfig{
			Backend:     ac.TaggerBackend,
			Host:        ac.TaggerHost,
			Model:       ac.TaggerModel,
			MaxFailures: 5,
			Cooldown:    Duration{30 * time.Second},
		},
		Dates:   DatesConfig{Languages: []string{"en"}},
		Retry:   RetryConfig{MaxAttempts: 5, Delay: Duration{time.Second}},
		Logging: LoggingConfig{Level: "warn"},
	}
}

// Load builds a Config from the defaults, the TOML file at path (skipped
// when path is empty) and the environment. A .env file in the working
// directory is loaded into the environment first; variables that are
// already set win. Load does not validate.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: .env: %w", ErrInvalidConfig, err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode overlays TOML data onto c. Unknown keys are errors.
func (c *Config) decode(data []byte) error {
	return toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(c)
}

// TOML renders c as a TOML document.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every setting and returns the first problem found,
// wrapped with ErrInvalidConfig.
func (c *Config) Validate() error {
	var problem string
	switch {
	case c.Docs.Dir == "":
		problem = "docs.dir is required"
	case c.Docs.Glob == "":
		problem = "docs.glob is required"
	case c.Chunking.Size < 1:
		problem = fmt.Sprintf("chunking.size must be positive, got %d", c.Chunking.Size)
	case c.Chunking.Overlap < 0:
		problem = fmt.Sprintf("chunking.overlap cannot be negative, got %d", c.Chunking.Overlap)
	case c.Chunking.Overlap >= c.Chunking.Size:
		problem = fmt.Sprintf("chunking.overlap (%d) must be smaller than chunking.size (%d)", c.Chunking.Overlap, c.Chunking.Size)
	case c.Store.Backend != BackendBadger && c.Store.Backend != BackendChromem:
		problem = fmt.Sprintf("store.backend must be %s or %s, got %q", BackendBadger, BackendChromem, c.Store.Backend)
	case c.Store.PersistDir == "":
		problem = "store.persist_dir is required"
	case c.Store.Collection == "":
		problem = "store.collection is required"
	case c.Embedding.Concurrency < 1:
		problem = fmt.Sprintf("embedding.concurrency must be positive, got %d", c.Embedding.Concurrency)
	case len(c.Dates.Languages) == 0:
		problem = "dates.languages needs at least one language"
	case c.Retry.MaxAttempts < 1:
		problem = fmt.Sprintf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	case c.Retry.Delay.Duration < 0:
		problem = "retry.delay cannot be negative"
	case c.Tagger.Cooldown.Duration < 0:
		problem = "tagger.cooldown cannot be negative"
	}
	if problem != "" {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, problem)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", ErrInvalidConfig, err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// AIConfig converts the service settings into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithEmbeddingBatchSize(c.Embedding.BatchSize),
		ai.WithRequestsPerSecond(c.Embedding.RequestsPerSecond),
		ai.WithTagger(c.Tagger.Backend, c.Tagger.Host, c.Tagger.Model),
		ai.WithTaggerToken(c.Tagger.Token),
	)
}

// ParseLevel maps a level name to a slog.Level. The empty string is info.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(name) == "" {
		return slog.LevelInfo, nil
	}
	err := level.UnmarshalText([]byte(strings.TrimSpace(name)))
	return level, err
}
