package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "taiwan_law", cfg.VectorStore.Qdrant.Collection)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	require.NotNil(t, cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, float32(0.5), *cfg.Retrieval.ScoreThreshold)
	require.NotNil(t, cfg.Generator.Ollama.Temperature)
	assert.Equal(t, 0.7, *cfg.Generator.Ollama.Temperature)
	assert.Equal(t, 1000, cfg.Ingest.MaxChunkChars)
}

func TestLoadPreservesExplicitZeroes(t *testing.T) {
	path := writeConfig(t, `
retrieval:
  score_threshold: 0
generator:
  type: ollama
  ollama:
    temperature: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, float32(0), *cfg.Retrieval.ScoreThreshold)
	require.NotNil(t, cfg.Generator.Ollama.Temperature)
	assert.Equal(t, float64(0), *cfg.Generator.Ollama.Temperature)
}

func TestLoadAppliesPartialDefaults(t *testing.T) {
	path := writeConfig(t, `
vector_store:
  type: qdrant
  qdrant:
    addr: qdrant.internal:6334
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal:6334", cfg.VectorStore.Qdrant.Addr)
	assert.Equal(t, "taiwan_law", cfg.VectorStore.Qdrant.Collection)
	require.NotNil(t, cfg.Retrieval.ScoreThreshold)
	assert.Equal(t, float32(0.5), *cfg.Retrieval.ScoreThreshold)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultConfig()
	threshold := float32(0)
	cfg.Retrieval.ScoreThreshold = &threshold
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, loaded.Retrieval.ScoreThreshold)
	assert.Equal(t, float32(0), *loaded.Retrieval.ScoreThreshold)
	assert.Equal(t, cfg.Generator.Ollama.Model, loaded.Generator.Ollama.Model)
}
