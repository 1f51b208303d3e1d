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


package openai

import (
	"log/slog"

	"github.com/poiesic/ragprep/ai"
	"github.com/poiesic/ragprep/ai/huggingface"
)

// Provider implements ai.AIProvider with an OpenAI-compatible embedder.
// The entity tagger is either the Hugging Face token classifier or an
// OpenAI-compatible chat model, selected by Config.TaggerBackend.
type Provider struct {
	config   *ai.Config
	embedder *Embedder
	tagger   ai.EntityTagger
	logger   *slog.Logger
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	var tagger ai.EntityTagger
	switch config.TaggerBackend {
	case ai.TaggerOpenAI:
		tagger, err = newEntityTagger(config)
	default:
		tagger, err = huggingface.NewTagger(config)
	}
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")
	logger.Debug("provider ready",
		"embedding_model", config.EmbeddingModel,
		"tagger", config.TaggerBackend,
		"tagger_model", config.TaggerModel)

	return &Provider{
		config:   config,
		embedder: embedder,
		tagger:   tagger,
		logger:   logger,
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// EntityTagger returns the named-entity tagging service.
func (p *Provider) EntityTagger() ai.EntityTagger {
	return p.tagger
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying HTTP clients need no explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
