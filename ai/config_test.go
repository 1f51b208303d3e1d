package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingHost)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 64, cfg.EmbeddingBatchSize)
	assert.Equal(t, TaggerHuggingFace, cfg.TaggerBackend)
	assert.Equal(t, "dslim/bert-base-NER", cfg.TaggerModel)
	assert.Zero(t, cfg.RequestsPerSecond)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		assert.Equal(t, "https://api.openai.com/v1", cfg.EmbeddingHost)
		assert.Equal(t, TaggerHuggingFace, cfg.TaggerBackend)
	})

	t.Run("with custom embedding service", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithEmbeddingModel("embeddinggemma"),
			WithAPIKey("sk-test"),
			WithEmbeddingBatchSize(16),
			WithRequestsPerSecond(2.5),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, 16, cfg.EmbeddingBatchSize)
		assert.Equal(t, 2.5, cfg.RequestsPerSecond)
	})

	t.Run("with openai tagger", func(t *testing.T) {
		cfg := NewConfig(
			WithTagger(TaggerOpenAI, "http://classify:9090/v1", "gpt-4o-mini"),
			WithTaggerToken("hf-unused"),
		)

		assert.Equal(t, TaggerOpenAI, cfg.TaggerBackend)
		assert.Equal(t, "http://classify:9090/v1", cfg.TaggerHost)
		assert.Equal(t, "gpt-4o-mini", cfg.TaggerModel)
		assert.Equal(t, "hf-unused", cfg.TaggerToken)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name           string
		embeddingHost  string
		taggerBackend  string
		taggerHost     string
		wantEmbedding  string
		wantTaggerHost string
	}{
		{
			name:           "already has /v1",
			embeddingHost:  "http://localhost:11434/v1",
			taggerBackend:  TaggerOpenAI,
			taggerHost:     "http://localhost:11434/v1",
			wantEmbedding:  "http://localhost:11434/v1",
			wantTaggerHost: "http://localhost:11434/v1",
		},
		{
			name:           "missing /v1",
			embeddingHost:  "http://localhost:11434",
			taggerBackend:  TaggerOpenAI,
			taggerHost:     "http://localhost:11434",
			wantEmbedding:  "http://localhost:11434/v1",
			wantTaggerHost: "http://localhost:11434/v1",
		},
		{
			name:           "has trailing slash",
			embeddingHost:  "http://localhost:11434/",
			taggerBackend:  TaggerOpenAI,
			taggerHost:     "http://localhost:11434/",
			wantEmbedding:  "http://localhost:11434/v1",
			wantTaggerHost: "http://localhost:11434/v1",
		},
		{
			name:           "huggingface host keeps its path",
			embeddingHost:  "https://api.openai.com/v1",
			taggerBackend:  " HuggingFace ",
			taggerHost:     "https://api-inference.huggingface.co/models/",
			wantEmbedding:  "https://api.openai.com/v1",
			wantTaggerHost: "https://api-inference.huggingface.co/models",
		},
		{
			name:           "empty hosts",
			taggerBackend:  TaggerOpenAI,
			wantEmbedding:  "",
			wantTaggerHost: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost: tt.embeddingHost,
				TaggerBackend: tt.taggerBackend,
				TaggerHost:    tt.taggerHost,
			}
			cfg.Normalize()

			assert.Equal(t, tt.wantEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.wantTaggerHost, cfg.TaggerHost)
			assert.Equal(t, 64, cfg.EmbeddingBatchSize)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing embedding host",
			mutate:  func(c *Config) { c.EmbeddingHost = "" },
			wantErr: "EmbeddingHost is required",
		},
		{
			name:    "missing embedding model",
			mutate:  func(c *Config) { c.EmbeddingModel = "" },
			wantErr: "EmbeddingModel is required",
		},
		{
			name:    "negative batch size",
			mutate:  func(c *Config) { c.EmbeddingBatchSize = -1 },
			wantErr: "EmbeddingBatchSize must be positive",
		},
		{
			name:    "negative rate",
			mutate:  func(c *Config) { c.RequestsPerSecond = -1 },
			wantErr: "RequestsPerSecond cannot be negative",
		},
		{
			name:    "unknown tagger backend",
			mutate:  func(c *Config) { c.TaggerBackend = "spacy" },
			wantErr: "TaggerBackend must be huggingface or openai",
		},
		{
			name:    "missing tagger model",
			mutate:  func(c *Config) { c.TaggerModel = "" },
			wantErr: "TaggerModel is required",
		},
		{
			name:    "missing tagger host",
			mutate:  func(c *Config) { c.TaggerHost = "" },
			wantErr: "TaggerHost is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_NormalizesFirst(t *testing.T) {
	cfg := NewConfig(WithEmbeddingHost("http://localhost:11434"))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
}

func TestSplitTag(t *testing.T) {
	tests := []struct {
		tag        string
		wantPrefix string
		wantGroup  string
	}{
		{"B-PER", "B", "PER"},
		{"I-ORG", "I", "ORG"},
		{"LOC", "", "LOC"},
		{"O", "", "O"},
		{"B-", "", "B-"},
		{"X-MISC", "", "X-MISC"},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			prefix, group := SplitTag(tt.tag)
			assert.Equal(t, tt.wantPrefix, prefix)
			assert.Equal(t, tt.wantGroup, group)
		})
	}
}

func TestTaggedToken_IsWordPiece(t *testing.T) {
	assert.True(t, TaggedToken{Word: "##ille"}.IsWordPiece())
	assert.False(t, TaggedToken{Word: "Lille"}.IsWordPiece())
}
