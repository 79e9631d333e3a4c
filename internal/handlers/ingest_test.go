package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"nia/internal/crawl"
	"nia/internal/ingest"
	"nia/internal/rag"
	"nia/internal/vectorstore"
)

type stubFetcher struct {
	pages []crawl.Page
	err   error
}

func (s *stubFetcher) Fetch(ctx context.Context, seedURL string) ([]crawl.Page, error) {
	return s.pages, s.err
}

type stubEmbedder struct{}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2}
	}
	return out, nil
}

type stubStore struct {
	vectorstore.VectorStore
	upserted int
}

func (s *stubStore) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	s.upserted += len(points)
	return nil
}

func newTestIngestHandler(fetcher crawl.Fetcher) *IngestHandler {
	pipeline := ingest.NewPipeline(fetcher, &stubEmbedder{}, &stubStore{}, ingest.Config{
		Collection:      "test-collection",
		MaxTokens:       50,
		OverlapTokens:   5,
		UpsertBatchSize: 25,
		Concurrency:     2,
	})
	return NewIngestHandler(pipeline)
}

func postIngest(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIngestHandler(t *testing.T) {
	fetcher := &stubFetcher{pages: []crawl.Page{{
		URL:       "http://site.example.com/",
		Title:     "Home",
		Text:      "Some page text worth indexing for later retrieval.",
		FetchedAt: time.Now().UTC(),
	}}}

	rec := postIngest(t, newTestIngestHandler(fetcher), `{"url":"http://site.example.com/"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report ingest.Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.PagesFetched != 1 {
		t.Errorf("PagesFetched = %d", report.PagesFetched)
	}
	if report.ChunksUpserted == 0 {
		t.Error("expected chunks to be upserted")
	}
}

func TestIngestHandlerValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{url`},
		{name: "missing url", body: `{}`},
		{name: "blank url", body: `{"url":"   "}`},
		{name: "bad scheme", body: `{"url":"ftp://site.example.com/"}`},
		{name: "negative max_tokens", body: `{"url":"http://x/","max_tokens":-1}`},
		{name: "overlap not below max", body: `{"url":"http://x/","max_tokens":10,"overlap_tokens":10}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestIngestHandler(&stubFetcher{})
			rec := postIngest(t, handler, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, expected 400, body = %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestIngestHandlerMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ingest", nil)
	rec := httptest.NewRecorder()
	newTestIngestHandler(&stubFetcher{}).ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, expected 405", rec.Code)
	}
}

func TestIngestHandlerCrawlFailure(t *testing.T) {
	handler := newTestIngestHandler(&stubFetcher{err: fmt.Errorf("seed unreachable")})
	rec := postIngest(t, handler, `{"url":"http://down.example.com/"}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, expected 502", rec.Code)
	}

	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error.Kind != rag.KindUpstreamUnavailable {
		t.Errorf("kind = %q, expected %q", body.Error.Kind, rag.KindUpstreamUnavailable)
	}
}
