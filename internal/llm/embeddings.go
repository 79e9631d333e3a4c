package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"nia/internal/chunk"
	"nia/internal/contextutil"
	"nia/internal/retry"
)

// EmbeddingsConfig configures the embeddings client.
type EmbeddingsConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// VectorSize is the expected output dimension; every returned vector is
	// validated against it. A mismatch means the configured model and the
	// indexed corpus disagree, which is fatal for retrieval.
	VectorSize int
	// BatchSize bounds how many texts are sent per request.
	BatchSize int
	// MaxInputTokens is the model's input ceiling; longer texts are rejected
	// with ErrInvalidInput rather than silently truncated.
	MaxInputTokens int
	// RPS and Burst bound the request rate globally across all callers
	// sharing this client.
	RPS     float64
	Burst   int
	Retry   retry.Policy
	Timeout time.Duration
}

// EmbeddingsClient converts texts into fixed-dimension vectors via an
// OpenAI-compatible embeddings endpoint. Safe for concurrent use.
type EmbeddingsClient struct {
	baseURL        string
	apiKey         string
	model          string
	vectorSize     int
	batchSize      int
	maxInputTokens int
	limiter        *rate.Limiter
	policy         retry.Policy
	client         *http.Client
}

// NewEmbeddingsClient creates a new embeddings client.
func NewEmbeddingsClient(cfg EmbeddingsConfig) *EmbeddingsClient {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 25
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmbeddingsClient{
		baseURL:        cfg.BaseURL,
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		vectorSize:     cfg.VectorSize,
		batchSize:      batch,
		maxInputTokens: cfg.MaxInputTokens,
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
		policy:         cfg.Retry,
		client:         &http.Client{Timeout: timeout},
	}
}

// embeddingsRequest is the request payload for the embeddings API.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingData is a single embedding in the response.
type embeddingData struct {
	Embedding []float64 `json:"embedding"`
}

// embeddingsResponse is the response from the embeddings API.
type embeddingsResponse struct {
	Data []embeddingData `json:"data"`
}

// EmbedTexts generates embeddings for the given texts, preserving order and
// length. Inputs are validated up front; requests go out in batches, each
// retried with exponential backoff. A batch that stays failed surfaces as
// ErrUnavailable.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty input array", ErrInvalidInput)
	}
	for i, text := range texts {
		if text == "" {
			return nil, fmt.Errorf("%w: text %d is empty", ErrInvalidInput, i)
		}
		if c.maxInputTokens > 0 {
			if tokens := chunk.EstimateTokens(text); tokens > c.maxInputTokens {
				return nil, fmt.Errorf("%w: text %d has %d tokens, limit is %d",
					ErrInvalidInput, i, tokens, c.maxInputTokens)
			}
		}
	}

	result := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vectors, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch [%d:%d]: %w", start, end, err)
		}
		copy(result[start:], vectors)
	}
	return result, nil
}

func (c *EmbeddingsClient) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var vectors [][]float32
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		v, err := c.requestEmbeddings(ctx, batch)
		if err != nil {
			logger.WarnContext(ctx, "embedding request failed", "batch_size", len(batch), "error", err)
			return err
		}
		vectors = v
		return nil
	}, func(err error) bool {
		return errorsIsTransient(err)
	})
	if err != nil {
		if errorsIsTransient(err) {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, err
	}
	return vectors, nil
}

func (c *EmbeddingsClient) requestEmbeddings(ctx context.Context, batch []string) ([][]float32, error) {
	payload := embeddingsRequest{Model: c.model, Input: batch}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		if transientStatus(resp.StatusCode) {
			return nil, fmt.Errorf("%w: status %d: %s", errTransient, resp.StatusCode, string(raw))
		}
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Data) != len(batch) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(batch), len(out.Data))
	}

	vectors := make([][]float32, len(out.Data))
	for i, data := range out.Data {
		if len(data.Embedding) != c.vectorSize {
			return nil, fmt.Errorf("embedding %d has size %d, expected %d", i, len(data.Embedding), c.vectorSize)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
