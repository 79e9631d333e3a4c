package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Generation endpoint (OpenAI-compatible chat completions).
	LLMBaseURL string
	LLMAPIKey  string
	LLMModel   string

	// Embedding endpoint (OpenAI-compatible embeddings).
	EmbeddingBaseURL   string
	EmbeddingModel     string
	EmbeddingBatchSize int
	// EmbeddingMaxInputTokens is the model's input ceiling; longer texts are
	// rejected rather than silently truncated.
	EmbeddingMaxInputTokens int
	// EmbeddingRPS and EmbeddingBurst bound the request rate to the embedding
	// endpoint globally, across all concurrent ingestion workers.
	EmbeddingRPS   float64
	EmbeddingBurst int

	// Qdrant vector store.
	QdrantURL        string
	QdrantCollection string
	QdrantVectorSize int

	// Chunking defaults (overridable per ingestion request).
	ChunkMaxTokens     int
	ChunkOverlapTokens int

	// Retrieval.
	TopK               int
	ContextTokenBudget int

	// Crawling bounds.
	CrawlMaxDepth int
	CrawlMaxPages int

	// Retry policy shared by the embedding and generation clients.
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration

	// Per-call timeout for outbound network calls.
	RequestTimeout time.Duration

	// IngestConcurrency bounds per-document parallelism during ingestion.
	IngestConcurrency int

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// Load reads configuration from environment variables and returns a Config.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it is
// loaded automatically; variables already set take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load() // Try current directory

	// Walk up a few levels so running from a subdirectory still finds .env.
	if wd, err := os.Getwd(); err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:       getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		LLMModel:         getEnv("LLM_MODEL", "gpt-4.1-nano"),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "https://api.openai.com"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "netweb_knowledge_base"),
		APIPort:          getEnv("API_PORT", "8000"),
		LogFormat:        getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.EmbeddingBatchSize, err = getEnvInt("EMBEDDING_BATCH_SIZE", 25); err != nil {
		return nil, err
	}
	if cfg.EmbeddingMaxInputTokens, err = getEnvInt("EMBEDDING_MAX_INPUT_TOKENS", 8192); err != nil {
		return nil, err
	}
	if cfg.EmbeddingBurst, err = getEnvInt("EMBEDDING_BURST", 5); err != nil {
		return nil, err
	}
	if cfg.ChunkMaxTokens, err = getEnvInt("CHUNK_MAX_TOKENS", 800); err != nil {
		return nil, err
	}
	if cfg.ChunkOverlapTokens, err = getEnvInt("CHUNK_OVERLAP_TOKENS", 60); err != nil {
		return nil, err
	}
	if cfg.TopK, err = getEnvInt("TOP_K", 10); err != nil {
		return nil, err
	}
	if cfg.ContextTokenBudget, err = getEnvInt("CONTEXT_TOKEN_BUDGET", 3000); err != nil {
		return nil, err
	}
	if cfg.CrawlMaxDepth, err = getEnvInt("CRAWL_MAX_DEPTH", 2); err != nil {
		return nil, err
	}
	if cfg.CrawlMaxPages, err = getEnvInt("CRAWL_MAX_PAGES", 30); err != nil {
		return nil, err
	}
	if cfg.RetryMaxAttempts, err = getEnvInt("RETRY_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.IngestConcurrency, err = getEnvInt("INGEST_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	rps := getEnv("EMBEDDING_RPS", "5")
	cfg.EmbeddingRPS, err = strconv.ParseFloat(rps, 64)
	if err != nil || cfg.EmbeddingRPS <= 0 {
		return nil, fmt.Errorf("EMBEDDING_RPS must be a positive number, got %q", rps)
	}

	if cfg.RetryInitialDelay, err = getEnvDuration("RETRY_INITIAL_DELAY", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.RetryMaxDelay, err = getEnvDuration("RETRY_MAX_DELAY", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	// The vector size must match the embedding model's output dimension.
	// If it changes, the Qdrant collection must be re-created and the corpus
	// re-ingested; mixing dimensions in one collection is a fatal error.
	vectorSizeStr := getEnv("QDRANT_VECTOR_SIZE", "")
	if vectorSizeStr == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	vectorSize, err := strconv.Atoi(vectorSizeStr)
	if err != nil {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be a valid integer: %w", err)
	}
	if vectorSize <= 0 {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE must be greater than 0")
	}
	cfg.QdrantVectorSize = vectorSize

	if cfg.ChunkOverlapTokens >= cfg.ChunkMaxTokens {
		return nil, fmt.Errorf("CHUNK_OVERLAP_TOKENS (%d) must be less than CHUNK_MAX_TOKENS (%d)",
			cfg.ChunkOverlapTokens, cfg.ChunkMaxTokens)
	}
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("TOP_K must be greater than 0")
	}
	if cfg.ContextTokenBudget <= 0 {
		return nil, fmt.Errorf("CONTEXT_TOKEN_BUDGET must be greater than 0")
	}
	if cfg.IngestConcurrency <= 0 {
		return nil, fmt.Errorf("INGEST_CONCURRENCY must be greater than 0")
	}

	cfg.LogLevel, err = parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be \"text\" or \"json\", got %q", cfg.LogFormat)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}
