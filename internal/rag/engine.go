package rag

import (
	"context"
	"errors"
	"time"

	"nia/internal/chunk"
	"nia/internal/contextutil"
	"nia/internal/llm"
	"nia/internal/retry"
	"nia/internal/vectorstore"
)

// maxTopK caps how many passages a single query may request.
const maxTopK = 50

// Engine answers questions over the indexed corpus.
type Engine interface {
	// Ask retrieves relevant passages for the question and generates an
	// answer grounded in them. Failures carry a *Error with a stable kind.
	Ask(ctx context.Context, req AskRequest) (AskResponse, error)
}

// Embedder converts texts to vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Generator produces an answer from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EngineConfig configures the retrieval engine.
type EngineConfig struct {
	Collection         string
	TopK               int
	ContextTokenBudget int

	// Retry bounds how often a transient vector search failure is retried.
	// The embedding and generation clients carry their own retry policies.
	Retry retry.Policy
}

type ragEngine struct {
	embedder  Embedder
	store     vectorstore.VectorStore
	generator Generator
	cfg       EngineConfig
}

// NewEngine creates a new retrieval engine.
func NewEngine(embedder Embedder, store vectorstore.VectorStore, generator Generator, cfg EngineConfig) Engine {
	return &ragEngine{
		embedder:  embedder,
		store:     store,
		generator: generator,
		cfg:       cfg,
	}
}

// Ask runs the query pipeline: embed, search, assemble, prompt, generate.
// Stages are strictly sequential; any stage failure fails the whole query.
// An empty result set is not a failure: the generator is still invoked with
// a prompt stating that no supporting context was found.
func (e *ragEngine) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	if req.Question == "" {
		return AskResponse{}, newError(KindInvalidInput, "question must not be empty", nil)
	}

	k := req.TopK
	if k <= 0 {
		k = e.cfg.TopK
	}
	if k > maxTopK {
		k = maxTopK
	}

	logger.InfoContext(ctx, "query started", "question_length", len(req.Question), "k", k)

	vectors, err := e.embedder.EmbedTexts(ctx, []string{req.Question})
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed question", "error", err)
		if errors.Is(err, llm.ErrInvalidInput) {
			return AskResponse{}, newError(KindInvalidInput, "question cannot be embedded", err)
		}
		return AskResponse{}, newError(KindEmbeddingUnavailable, "failed to embed question", err)
	}
	if len(vectors) != 1 {
		return AskResponse{}, newError(KindInternal, "embedder returned unexpected vector count", nil)
	}

	var results []vectorstore.SearchResult
	err = e.cfg.Retry.Do(ctx, func(ctx context.Context) error {
		var searchErr error
		results, searchErr = e.store.Search(ctx, e.cfg.Collection, vectors[0], k, nil)
		return searchErr
	}, func(err error) bool {
		return errors.Is(err, vectorstore.ErrUnavailable)
	})
	if err != nil {
		logger.ErrorContext(ctx, "vector search failed", "error", err)
		return AskResponse{}, newError(KindStoreUnavailable, "vector search failed", err)
	}

	passages := make([]Passage, 0, len(results))
	for _, result := range results {
		passage, ok := passageFromResult(result)
		if !ok {
			logger.WarnContext(ctx, "skipping point with incomplete payload", "point_id", result.PointID)
			continue
		}
		passages = append(passages, passage)
	}

	assembled := assemble(passages, e.cfg.ContextTokenBudget)
	logger.InfoContext(ctx, "context assembled",
		"retrieved", len(results),
		"included", len(assembled.Passages),
		"token_count", assembled.TokenCount,
	)

	prompt := buildPrompt(req.Question, assembled)

	answer, err := e.generator.Generate(ctx, prompt)
	if err != nil {
		logger.ErrorContext(ctx, "generation failed", "error", err)
		return AskResponse{}, newError(KindGenerationUnavailable, "failed to generate answer", err)
	}

	resp := AskResponse{
		Answer:    answer,
		Citations: citations(assembled),
		LatencyMS: time.Since(start).Milliseconds(),
	}
	logger.InfoContext(ctx, "query completed",
		"citations", len(resp.Citations),
		"latency_ms", resp.LatencyMS,
	)
	return resp, nil
}

// citations returns the distinct source URLs of the assembled passages in
// first-referenced order.
func citations(assembled Context) []string {
	seen := make(map[string]bool)
	urls := make([]string, 0, len(assembled.Passages))
	for _, p := range assembled.Passages {
		if seen[p.Chunk.SourceURL] {
			continue
		}
		seen[p.Chunk.SourceURL] = true
		urls = append(urls, p.Chunk.SourceURL)
	}
	return urls
}

// passageFromResult rebuilds a passage from a stored point's payload.
func passageFromResult(result vectorstore.SearchResult) (Passage, bool) {
	sourceURL, _ := result.Meta["source_url"].(string)
	text, _ := result.Meta["text"].(string)
	if sourceURL == "" || text == "" {
		return Passage{}, false
	}

	tokenCount := metaInt(result.Meta, "token_count")
	if tokenCount == 0 {
		tokenCount = chunk.EstimateTokens(text)
	}

	return Passage{
		Chunk: chunk.Chunk{
			ID:          result.PointID,
			SourceURL:   sourceURL,
			Text:        text,
			StartOffset: metaInt(result.Meta, "start_offset"),
			EndOffset:   metaInt(result.Meta, "end_offset"),
			TokenCount:  tokenCount,
		},
		Score: result.Score,
	}, true
}

// metaInt reads an integer payload field regardless of how the store's codec
// decoded it.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
