package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nia/internal/contextutil"
	"nia/internal/retry"
)

// Config configures the generation client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Retry   retry.Policy
	Timeout time.Duration
}

// Client sends prompts to an OpenAI-compatible chat completions endpoint.
// The prompt is treated as opaque text; the client never inspects or reorders
// it. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	policy  retry.Policy
	client  *http.Client
}

// NewClient creates a new generation client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		policy:  cfg.Retry,
		client:  &http.Client{Timeout: timeout},
	}
}

// chatMessage is a single message in a chat conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request payload for chat completions. Temperature is
// pinned to zero so answers stay deterministic for a given prompt.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Generate sends the prompt and returns the completion text. Transient
// endpoint failures are retried with backoff; once the budget is exhausted
// the error wraps ErrUnavailable.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", fmt.Errorf("%w: empty prompt", ErrInvalidInput)
	}
	logger := contextutil.LoggerFromContext(ctx)

	var answer string
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		text, err := c.requestCompletion(ctx, prompt)
		if err != nil {
			logger.WarnContext(ctx, "generation request failed", "error", err)
			return err
		}
		answer = text
		return nil
	}, errorsIsTransient)
	if err != nil {
		if errorsIsTransient(err) {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", err
	}
	return answer, nil
}

func (c *Client) requestCompletion(ctx context.Context, prompt string) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		if transientStatus(resp.StatusCode) {
			return "", fmt.Errorf("%w: status %d: %s", errTransient, resp.StatusCode, string(raw))
		}
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return out.Choices[0].Message.Content, nil
}

// Ping checks that the generation endpoint is reachable. Used by the health
// endpoint; a single attempt, no retries.
func (c *Client) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/v1/models", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}
