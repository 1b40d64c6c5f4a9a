package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Documents and index
	DataDir     string
	VectorStore string // sqlite, qdrant or memory
	IndexPath   string

	// Qdrant connection
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Embeddings
	EmbeddingProvider string // ollama or openai
	EmbeddingModel    string
	EmbeddingURL      string
	OpenAIAPIKey      string
	EmbeddingRPS      float64

	// Generation
	LLMProvider     string // ollama or anthropic
	LLMModel        string
	OllamaURL       string
	AnthropicAPIKey string
	AnthropicModel  string
	GenerateTimeout time.Duration

	// Conversation memory
	MemoryFile string
	MemoryTTL  time.Duration

	// Chunking and retrieval
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	TopK         int
	CasualMatch  string // exact or contains

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Background re-indexing
	WatchDataDir  bool
	IndexSchedule string
}

// Load reads configuration from the environment.
func Load() Config {
	return load(source{})
}

// LoadFile reads a flat key/value file (.yaml, .yml or .toml) and layers
// the environment on top of it. Keys use the environment variable names;
// lower case and dashes are accepted.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	raw := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	default:
		return Config{}, fmt.Errorf("unsupported config file type %q", filepath.Ext(path))
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}

	file := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v.(type) {
		case map[string]any, []any:
			return Config{}, fmt.Errorf("config key %q: nested values are not supported", k)
		}
		file[normalizeKey(k)] = fmt.Sprint(v)
	}
	return load(source{file: file}), nil
}

func load(src source) Config {
	cfg := Config{
		Port: src.envOr("PORT", "8090"),

		APIKey: src.get("DOCCHAT_API_KEY"),

		DataDir:     src.envOr("DATA_DIR", "data"),
		VectorStore: strings.ToLower(src.envOr("VECTOR_STORE", "sqlite")),
		IndexPath:   src.envOr("INDEX_PATH", filepath.Join("index", "docchat.db")),

		QdrantURL:        src.envOr("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     src.get("QDRANT_API_KEY"),
		QdrantCollection: src.envOr("QDRANT_COLLECTION", "docchat"),

		EmbeddingProvider: strings.ToLower(src.envOr("EMBEDDING_PROVIDER", "ollama")),
		EmbeddingModel:    src.get("EMBEDDING_MODEL"),
		EmbeddingURL:      src.get("EMBEDDING_URL"),
		OpenAIAPIKey:      src.get("OPENAI_API_KEY"),
		EmbeddingRPS:      src.envFloat("EMBEDDING_RPS", 0),

		LLMProvider:     strings.ToLower(src.envOr("LLM_PROVIDER", "ollama")),
		LLMModel:        src.get("LLM_MODEL"),
		OllamaURL:       src.envOr("OLLAMA_URL", "http://localhost:11434"),
		AnthropicAPIKey: src.get("ANTHROPIC_API_KEY"),
		AnthropicModel:  src.envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GenerateTimeout: src.envDuration("GENERATE_TIMEOUT", 2*time.Minute),

		MemoryFile: src.envOr("MEMORY_FILE", "chat_memory.json"),
		MemoryTTL:  src.envDuration("MEMORY_TTL", 72*time.Hour),

		ChunkSize:    src.envInt("CHUNK_SIZE", 800),
		ChunkOverlap: src.envInt("CHUNK_OVERLAP", 80),
		BatchSize:    src.envInt("BATCH_SIZE", 50),
		TopK:         src.envInt("TOP_K", 5),
		CasualMatch:  strings.ToLower(src.envOr("CASUAL_MATCH", "exact")),

		WorkerCount:  src.envInt("WORKER_COUNT", 1),
		MaxQueueSize: src.envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: src.envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: src.envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: src.envBool("PDF_FALLBACK_PDFTOTEXT", true),

		WatchDataDir:  src.envBool("WATCH_DATA_DIR", false),
		IndexSchedule: src.get("INDEX_SCHEDULE"),
	}

	if cfg.EmbeddingRPS < 0 {
		cfg.EmbeddingRPS = 0
	}
	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 2 * time.Minute
	}
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = 72 * time.Hour
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 80
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks settings needed by every entry point.
func (c Config) Validate() error {
	switch c.VectorStore {
	case "sqlite", "memory":
	case "qdrant":
		if c.QdrantURL == "" {
			return fmt.Errorf("QDRANT_URL is required when VECTOR_STORE=qdrant")
		}
	default:
		return fmt.Errorf("VECTOR_STORE must be sqlite, qdrant or memory, got %q", c.VectorStore)
	}

	switch c.EmbeddingProvider {
	case "ollama":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be ollama or openai, got %q", c.EmbeddingProvider)
	}

	switch c.LLMProvider {
	case "ollama":
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("LLM_PROVIDER must be ollama or anthropic, got %q", c.LLMProvider)
	}

	if c.CasualMatch != "exact" && c.CasualMatch != "contains" {
		return fmt.Errorf("CASUAL_MATCH must be exact or contains, got %q", c.CasualMatch)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}

// ValidateServer is Validate plus the settings only the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("DOCCHAT_API_KEY is required")
	}
	return nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) get(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func normalizeKey(k string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(k), "-", "_"))
}

func (s source) envOr(key, fallback string) string {
	if v := s.get(key); v != "" {
		return v
	}
	return fallback
}

func (s source) envInt(key string, fallback int) int {
	if v := s.get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (s source) envInt64(key string, fallback int64) int64 {
	if v := s.get(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func (s source) envFloat(key string, fallback float64) float64 {
	if v := s.get(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func (s source) envBool(key string, fallback bool) bool {
	if v := s.get(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func (s source) envDuration(key string, fallback time.Duration) time.Duration {
	if v := s.get(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
