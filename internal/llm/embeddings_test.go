package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nia/internal/retry"
)

func testRetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}
}

func embeddingsServer(t *testing.T, handler func(w http.ResponseWriter, inputs []string, call int)) *httptest.Server {
	t.Helper()
	calls := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		calls++
		handler(w, req.Input, calls)
	}))
}

// writeVectors responds with one deterministic vector per input, encoding the
// input's position so order can be asserted.
func writeVectors(w http.ResponseWriter, inputs []string, vectorSize int, base float64) {
	resp := embeddingsResponse{Data: make([]embeddingData, len(inputs))}
	for i := range inputs {
		vec := make([]float64, vectorSize)
		vec[0] = base + float64(i)
		resp.Data[i] = embeddingData{Embedding: vec}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func TestEmbedTexts(t *testing.T) {
	server := embeddingsServer(t, func(w http.ResponseWriter, inputs []string, call int) {
		writeVectors(w, inputs, 4, 0)
	})
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		VectorSize: 4,
		BatchSize:  25,
		RPS:        1000,
		Burst:      100,
		Retry:      testRetryPolicy(),
	})

	vectors, err := client.EmbedTexts(context.Background(), []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != 4 {
			t.Errorf("vector %d has size %d, expected 4", i, len(vec))
		}
		if vec[0] != float32(i) {
			t.Errorf("vector %d out of order: first component = %v", i, vec[0])
		}
	}
}

func TestEmbedTextsBatching(t *testing.T) {
	var batchSizes []int
	server := embeddingsServer(t, func(w http.ResponseWriter, inputs []string, call int) {
		batchSizes = append(batchSizes, len(inputs))
		// encode the batch index so cross-batch ordering is visible
		writeVectors(w, inputs, 2, float64(call-1)*100)
	})
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		VectorSize: 2,
		BatchSize:  2,
		RPS:        1000,
		Burst:      100,
		Retry:      testRetryPolicy(),
	})

	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := client.EmbedTexts(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	wantBatches := []int{2, 2, 1}
	if len(batchSizes) != len(wantBatches) {
		t.Fatalf("expected %d batches, got %v", len(wantBatches), batchSizes)
	}
	for i, want := range wantBatches {
		if batchSizes[i] != want {
			t.Errorf("batch %d has size %d, expected %d", i, batchSizes[i], want)
		}
	}
	// batch 0 items carry 0,1; batch 1 carries 100,101; batch 2 carries 200
	wantFirst := []float32{0, 1, 100, 101, 200}
	for i, vec := range vectors {
		if vec[0] != wantFirst[i] {
			t.Errorf("vector %d first component = %v, expected %v", i, vec[0], wantFirst[i])
		}
	}
}

func TestEmbedTextsInvalidInput(t *testing.T) {
	server := embeddingsServer(t, func(w http.ResponseWriter, inputs []string, call int) {
		t.Error("server should not be called for invalid input")
	})
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:        server.URL,
		APIKey:         "test-key",
		Model:          "test-model",
		VectorSize:     2,
		MaxInputTokens: 4,
		RPS:            1000,
		Burst:          100,
		Retry:          testRetryPolicy(),
	})

	tests := []struct {
		name  string
		texts []string
	}{
		{name: "empty slice", texts: nil},
		{name: "empty string", texts: []string{"ok", ""}},
		{name: "over token limit", texts: []string{"one two three four five"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.EmbedTexts(context.Background(), tt.texts)
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestEmbedTextsRetriesTransientFailure(t *testing.T) {
	server := embeddingsServer(t, func(w http.ResponseWriter, inputs []string, call int) {
		if call == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		writeVectors(w, inputs, 2, 0)
	})
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		VectorSize: 2,
		RPS:        1000,
		Burst:      100,
		Retry:      testRetryPolicy(),
	})

	vectors, err := client.EmbedTexts(context.Background(), []string{"hello"})
	if err != nil {
		t.Fatalf("EmbedTexts() error = %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
}

func TestEmbedTextsUnavailableAfterExhaustion(t *testing.T) {
	server := embeddingsServer(t, func(w http.ResponseWriter, inputs []string, call int) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	})
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		VectorSize: 2,
		RPS:        1000,
		Burst:      100,
		Retry:      testRetryPolicy(),
	})

	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestEmbedTextsClientErrorNotRetried(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		VectorSize: 2,
		RPS:        1000,
		Burst:      100,
		Retry:      testRetryPolicy(),
	})

	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrUnavailable) {
		t.Errorf("client error should not surface as ErrUnavailable: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestEmbedTextsDimensionMismatch(t *testing.T) {
	server := embeddingsServer(t, func(w http.ResponseWriter, inputs []string, call int) {
		writeVectors(w, inputs, 3, 0)
	})
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		VectorSize: 2,
		RPS:        1000,
		Burst:      100,
		Retry:      testRetryPolicy(),
	})

	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "expected 2") {
		t.Errorf("expected dimension mismatch error, got %v", err)
	}
}

func TestEmbedTextsCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	client := NewEmbeddingsClient(EmbeddingsConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		Model:      "test-model",
		VectorSize: 2,
		RPS:        1000,
		Burst:      100,
		Retry:      testRetryPolicy(),
	})

	_, err := client.EmbedTexts(context.Background(), []string{"hello"})
	if err == nil || !strings.Contains(err.Error(), "expected 1 embeddings") {
		t.Errorf("expected count mismatch error, got %v", err)
	}
}
