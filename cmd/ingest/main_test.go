package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/ragprep/ai/mock"
	"github.com/poiesic/ragprep/config"
	"github.com/poiesic/ragprep/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// embeddingServer answers /v1/embeddings with deterministic vectors.
func embeddingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]item, len(req.Input))
		for i, text := range req.Input {
			data[i] = item{Embedding: mock.GenerateDeterministicVector(text, 16), Index: i}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": req.Model})
	}))
	t.Cleanup(server.Close)
	return server
}

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("The patient was admitted on Monday morning."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("Discharge followed two days later."), 0o644))
	return dir
}

func TestIngest(t *testing.T) {
	t.Chdir(t.TempDir())
	server := embeddingServer(t)
	docs := writeDocs(t)
	persist := filepath.Join(t.TempDir(), "store")

	var stdout bytes.Buffer
	err := newApp(&stdout).Run([]string{"ingest",
		"--docs", docs,
		"--persist-dir", persist,
		"--chunk-size", "20",
		"--chunk-overlap", "5",
		"--embedding-host", server.URL,
		"--api-key", "sk-test",
	})
	require.NoError(t, err)

	out := stdout.String()
	assert.Contains(t, out, "Loading documents from "+docs)
	assert.Contains(t, out, "Splitting documents into chunks...")
	assert.Contains(t, out, "Vector store created and saved to "+persist)
	assert.Regexp(t, `Vectors stored: [1-9]\d*`, out)
	assert.Contains(t, out, "Persist dir exists: true")
	assert.DirExists(t, persist)
}

func TestIngest_Errors(t *testing.T) {
	t.Chdir(t.TempDir())
	server := embeddingServer(t)

	t.Run("overlap not smaller than size", func(t *testing.T) {
		err := newApp(&bytes.Buffer{}).Run([]string{"ingest",
			"--docs", writeDocs(t),
			"--chunk-size", "10",
			"--chunk-overlap", "10",
			"--embedding-host", server.URL,
		})
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("missing documents directory", func(t *testing.T) {
		err := newApp(&bytes.Buffer{}).Run([]string{"ingest",
			"--docs", filepath.Join(t.TempDir(), "missing"),
			"--persist-dir", filepath.Join(t.TempDir(), "store"),
			"--embedding-host", server.URL,
		})
		assert.ErrorIs(t, err, ingestion.ErrDocumentsNotFound)
	})
}
