package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by Load.
const (
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
	EnvHFToken       = "HF_API_TOKEN"

	EnvDocsDir        = "RAGPREP_DOCS_DIR"
	EnvDocsGlob       = "RAGPREP_DOCS_GLOB"
	EnvChunkSize      = "RAGPREP_CHUNK_SIZE"
	EnvChunkOverlap   = "RAGPREP_CHUNK_OVERLAP"
	EnvStoreBackend   = "RAGPREP_STORE_BACKEND"
	EnvPersistDir     = "RAGPREP_PERSIST_DIR"
	EnvCollection     = "RAGPREP_COLLECTION"
	EnvEmbeddingModel = "RAGPREP_EMBEDDING_MODEL"
	EnvTaggerBackend  = "RAGPREP_TAGGER_BACKEND"
	EnvTaggerHost     = "RAGPREP_TAGGER_HOST"
	EnvTaggerModel    = "RAGPREP_TAGGER_MODEL"
	EnvLanguages      = "RAGPREP_LANGUAGES"
	EnvMaxAttempts    = "RAGPREP_RETRY_MAX_ATTEMPTS"
	EnvLogLevel       = "RAGPREP_LOG_LEVEL"
)

// applyEnv overrides c with the variables lookup finds.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, name, v)
		}
		*dst = n
		return nil
	}

	str(EnvOpenAIKey, &c.Embedding.APIKey)
	str(EnvOpenAIBaseURL, &c.Embedding.Host)
	str(EnvHFToken, &c.Tagger.Token)

	str(EnvDocsDir, &c.Docs.Dir)
	str(EnvDocsGlob, &c.Docs.Glob)
	str(EnvStoreBackend, &c.Store.Backend)
	str(EnvPersistDir, &c.Store.PersistDir)
	str(EnvCollection, &c.Store.Collection)
	str(EnvEmbeddingModel, &c.Embedding.Model)
	str(EnvTaggerBackend, &c.Tagger.Backend)
	str(EnvTaggerHost, &c.Tagger.Host)
	str(EnvTaggerModel, &c.Tagger.Model)
	str(EnvLogLevel, &c.Logging.Level)

	if v, ok := lookup(EnvLanguages); ok && v != "" {
		c.Dates.Languages = SplitList(v)
	}

	for name, dst := range map[string]*int{
		EnvChunkSize:    &c.Chunking.Size,
		EnvChunkOverlap: &c.Chunking.Overlap,
		EnvMaxAttempts:  &c.Retry.MaxAttempts,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}
	return nil
}

// SplitList splits a comma-separated list, dropping blank entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
