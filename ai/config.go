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


package ai

import (
	"errors"
	"strings"
)

// Tagger backends.
const (
	TaggerHuggingFace = "huggingface"
	TaggerOpenAI      = "openai"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "https://api.openai.com/v1" or "http://localhost:11434/v1"
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "embeddinggemma"
	EmbeddingModel string

	// APIKey authenticates against the embedding service and the OpenAI tagger.
	// Local OpenAI-compatible servers accept any value.
	APIKey string

	// EmbeddingBatchSize is the number of texts sent per embedding request.
	// Default: 64
	EmbeddingBatchSize int

	// RequestsPerSecond caps embedding requests. Zero disables the limit.
	RequestsPerSecond float64

	// TaggerBackend selects the entity tagging service: "huggingface" or "openai".
	TaggerBackend string

	// TaggerHost is the base URL of the tagging service.
	// For huggingface the model name is appended to it.
	TaggerHost string

	// TaggerModel is the tagging model identifier.
	// Example: "dslim/bert-base-NER", "gpt-4o-mini"
	TaggerModel string

	// TaggerToken authenticates against the Hugging Face Inference API.
	TaggerToken string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingBatchSize sets the number of texts per embedding request.
func WithEmbeddingBatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.EmbeddingBatchSize = n
	}
}

// WithRequestsPerSecond caps the embedding request rate.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithTagger selects the tagging backend, host and model together.
func WithTagger(backend, host, model string) ConfigOption {
	return func(c *Config) {
		c.TaggerBackend = backend
		c.TaggerHost = host
		c.TaggerModel = model
	}
}

// WithTaggerToken sets the Hugging Face API token.
func WithTaggerToken(token string) ConfigOption {
	return func(c *Config) {
		c.TaggerToken = token
	}
}

// DefaultConfig returns a Config targeting the OpenAI embedding API and the
// Hugging Face hosted dslim/bert-base-NER model.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:      "https://api.openai.com/v1",
		EmbeddingModel:     "text-embedding-3-small",
		EmbeddingBatchSize: 64,
		TaggerBackend:      TaggerHuggingFace,
		TaggerHost:         "https://api-inference.huggingface.co/models",
		TaggerModel:        "dslim/bert-base-NER",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
// This is the recommended way to create a Config with custom settings.
//
// Example:
//   cfg := NewConfig(
//       WithEmbeddingHost("http://localhost:11434/v1"),
//       WithEmbeddingModel("embeddinggemma"),
//       WithTagger(TaggerOpenAI, "http://localhost:11434/v1", "qwen2.5:3b"),
//   )
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix when missing; the Hugging Face
// host loses any trailing slash.
func (c *Config) Normalize() {
	c.EmbeddingHost = ensureV1(c.EmbeddingHost)
	c.TaggerBackend = strings.ToLower(strings.TrimSpace(c.TaggerBackend))
	if c.TaggerBackend == TaggerOpenAI {
		c.TaggerHost = ensureV1(c.TaggerHost)
	} else {
		c.TaggerHost = strings.TrimSuffix(c.TaggerHost, "/")
	}
	if c.EmbeddingBatchSize == 0 {
		c.EmbeddingBatchSize = 64
	}
}

func ensureV1(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.EmbeddingBatchSize < 1 {
		return errors.New("ai config: EmbeddingBatchSize must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond cannot be negative")
	}
	if c.TaggerBackend != TaggerHuggingFace && c.TaggerBackend != TaggerOpenAI {
		return errors.New("ai config: TaggerBackend must be huggingface or openai")
	}
	if c.TaggerHost == "" {
		return errors.New("ai config: TaggerHost is required")
	}
	if c.TaggerModel == "" {
		return errors.New("ai config: TaggerModel is required")
	}
	return nil
}
