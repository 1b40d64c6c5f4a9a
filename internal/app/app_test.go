package app

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docchat/internal/config"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		DataDir:           filepath.Join(dir, "data"),
		VectorStore:       "sqlite",
		IndexPath:         filepath.Join(dir, "index", "docchat.db"),
		EmbeddingProvider: "ollama",
		LLMProvider:       "ollama",
		OllamaURL:         "http://127.0.0.1:1",
		MemoryFile:        filepath.Join(dir, "chat_memory.json"),
		CasualMatch:       "exact",
		ChunkSize:         800,
		ChunkOverlap:      80,
		BatchSize:         50,
		TopK:              5,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_SQLiteIndexCreatesFile(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(cfg, discard())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.RAG)
	assert.NotNil(t, a.Indexer)
	assert.Equal(t, "llama3.1", a.Generator.Model())
	_, err = os.Stat(cfg.IndexPath)
	assert.NoError(t, err)
}

func TestNew_MemoryIndexIsGuarded(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorStore = "memory"

	a, err := New(cfg, discard())
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Index.(*vectorstore.Guarded)
	assert.True(t, ok)
}

func TestNew_AnthropicGenerator(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProvider = "anthropic"
	cfg.AnthropicAPIKey = "key"
	cfg.AnthropicModel = "claude-test"

	a, err := New(cfg, discard())
	require.NoError(t, err)
	assert.Equal(t, "claude-test", a.Generator.Model())
	assert.NoError(t, a.Close())
}

func TestNew_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.VectorStore = "faiss"

	_, err := New(cfg, discard())
	assert.Error(t, err)
}
