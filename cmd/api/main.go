package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"nia/internal/config"
	"nia/internal/crawl"
	"nia/internal/http"
	"nia/internal/ingest"
	"nia/internal/llm"
	"nia/internal/rag"
	"nia/internal/retry"
	"nia/internal/vectorstore"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	retryPolicy := retry.Policy{
		MaxAttempts:  cfg.RetryMaxAttempts,
		InitialDelay: cfg.RetryInitialDelay,
		MaxDelay:     cfg.RetryMaxDelay,
	}

	// Initialize Qdrant vector store
	vectorStore, err := vectorstore.NewQdrantStore(cfg.QdrantURL)
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	// Ensure collection exists with correct vector size
	if err := vectorStore.EnsureCollection(ctx, cfg.QdrantCollection, cfg.QdrantVectorSize); err != nil {
		log.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}
	slog.Info("Qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", cfg.QdrantVectorSize)

	// Validate embedding client vector size (fail-fast)
	embedder := llm.NewEmbeddingsClient(llm.EmbeddingsConfig{
		BaseURL:        cfg.EmbeddingBaseURL,
		APIKey:         cfg.LLMAPIKey,
		Model:          cfg.EmbeddingModel,
		VectorSize:     cfg.QdrantVectorSize,
		BatchSize:      cfg.EmbeddingBatchSize,
		MaxInputTokens: cfg.EmbeddingMaxInputTokens,
		RPS:            cfg.EmbeddingRPS,
		Burst:          cfg.EmbeddingBurst,
		Retry:          retryPolicy,
		Timeout:        cfg.RequestTimeout,
	})
	testEmbeddings, err := embedder.EmbedTexts(ctx, []string{"test"})
	if err != nil {
		log.Fatalf("Failed to validate embedding client: %v", err)
	}
	if len(testEmbeddings) == 0 || len(testEmbeddings[0]) != cfg.QdrantVectorSize {
		log.Fatalf("Embedding vector size mismatch: expected %d, got %d", cfg.QdrantVectorSize, len(testEmbeddings[0]))
	}
	slog.Info("Embedding client validated", "vector_size", cfg.QdrantVectorSize)

	// Create generation client
	llmClient := llm.NewClient(llm.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Retry:   retryPolicy,
		Timeout: cfg.RequestTimeout,
	})

	// Create retrieval engine
	engine := rag.NewEngine(embedder, vectorStore, llmClient, rag.EngineConfig{
		Collection:         cfg.QdrantCollection,
		TopK:               cfg.TopK,
		ContextTokenBudget: cfg.ContextTokenBudget,
		Retry:              retryPolicy,
	})
	slog.Info("Retrieval engine initialized")

	// Create ingestion pipeline
	fetcher := crawl.NewSiteFetcher(crawl.SiteFetcherConfig{
		MaxDepth: cfg.CrawlMaxDepth,
		MaxPages: cfg.CrawlMaxPages,
		Timeout:  cfg.RequestTimeout,
	})
	pipeline := ingest.NewPipeline(fetcher, embedder, vectorStore, ingest.Config{
		Collection:    cfg.QdrantCollection,
		MaxTokens:     cfg.ChunkMaxTokens,
		OverlapTokens: cfg.ChunkOverlapTokens,
		Concurrency:   cfg.IngestConcurrency,
	})

	// Create router with dependencies
	deps := &http.Deps{
		Engine:     engine,
		Pipeline:   pipeline,
		Store:      vectorStore,
		Collection: cfg.QdrantCollection,
		Generation: llmClient,
	}
	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
