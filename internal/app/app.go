// Package app assembles the question answering components from configuration.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/docchat/internal/chunker"
	"github.com/dgallion1/docchat/internal/config"
	"github.com/dgallion1/docchat/internal/embedding"
	"github.com/dgallion1/docchat/internal/indexer"
	"github.com/dgallion1/docchat/internal/llm"
	"github.com/dgallion1/docchat/internal/loader"
	"github.com/dgallion1/docchat/internal/memory"
	"github.com/dgallion1/docchat/internal/rag"
	"github.com/dgallion1/docchat/internal/vectorstore"
)

// App holds the shared components. Both binaries build one.
type App struct {
	Config    config.Config
	Index     vectorstore.Index
	Embedder  embedding.Embedder
	Generator *llm.Instrumented
	Memory    *memory.Store
	Indexer   *indexer.Indexer
	RAG       *rag.Orchestrator

	closers []func() error
}

func New(cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg}

	store, err := openIndex(cfg)
	if err != nil {
		return nil, err
	}
	a.Index = vectorstore.NewGuarded(store)
	a.closers = append(a.closers, a.Index.Close)

	a.Embedder = newEmbedder(cfg)

	gen := newGenerator(cfg)
	a.Generator = llm.NewInstrumented(gen, llm.NewLLMStats(time.Hour), log.With("component", "llm"))
	if c, ok := gen.(*llm.ClaudeClient); ok {
		a.closers = append(a.closers, func() error { c.Close(); return nil })
	}

	a.Memory = memory.NewStore(cfg.MemoryFile, cfg.MemoryTTL, log.With("component", "memory"))

	l := loader.New(loader.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}, log.With("component", "loader"))
	a.Indexer = indexer.New(l, a.Index, a.Embedder, chunker.Config{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, cfg.BatchSize, log.With("component", "indexer"))

	a.RAG = rag.New(a.Embedder, a.Index, a.Generator, a.Memory, rag.Options{
		TopK:            cfg.TopK,
		GenerateTimeout: cfg.GenerateTimeout,
		CasualMode:      rag.CasualMode(cfg.CasualMatch),
	}, log.With("component", "rag"))

	log.Debug("components ready",
		"vector_store", cfg.VectorStore,
		"embedding_provider", cfg.EmbeddingProvider,
		"llm_provider", cfg.LLMProvider,
		"model", a.Generator.Model(),
	)
	return a, nil
}

// Close releases the index and any client connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openIndex(cfg config.Config) (vectorstore.Index, error) {
	switch cfg.VectorStore {
	case "memory":
		return vectorstore.NewMemory(), nil
	case "qdrant":
		return vectorstore.NewQdrant(vectorstore.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
		}), nil
	case "sqlite", "":
		s, err := vectorstore.OpenSQLite(cfg.IndexPath)
		if err != nil {
			return nil, fmt.Errorf("open index: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
	}
}

func newEmbedder(cfg config.Config) embedding.Embedder {
	if cfg.EmbeddingProvider == "openai" {
		return embedding.NewOpenAI(embedding.OpenAIConfig{
			BaseURL: cfg.EmbeddingURL,
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			RPS:     cfg.EmbeddingRPS,
		})
	}
	url := cfg.EmbeddingURL
	if url == "" {
		url = cfg.OllamaURL
	}
	return embedding.NewOllama(embedding.OllamaConfig{
		BaseURL: url,
		Model:   cfg.EmbeddingModel,
		RPS:     cfg.EmbeddingRPS,
	})
}

func newGenerator(cfg config.Config) llm.Generator {
	if cfg.LLMProvider == "anthropic" {
		return llm.NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	}
	return llm.NewOllamaClient(cfg.OllamaURL, cfg.LLMModel)
}
