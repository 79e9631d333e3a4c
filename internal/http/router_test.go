package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"nia/internal/crawl"
	"nia/internal/ingest"
	"nia/internal/rag"
	"nia/internal/vectorstore/mocks"
)

type stubEngine struct{}

func (s *stubEngine) Ask(ctx context.Context, req rag.AskRequest) (rag.AskResponse, error) {
	return rag.AskResponse{Answer: "ok", Citations: []string{}}, nil
}

type stubFetcher struct{}

func (s *stubFetcher) Fetch(ctx context.Context, seedURL string) ([]crawl.Page, error) {
	return nil, nil
}

type stubEmbedder struct{}

func (s *stubEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

type stubPinger struct{}

func (s *stubPinger) Ping(ctx context.Context) error { return nil }

func newTestDeps(t *testing.T) *Deps {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockVectorStore(ctrl)
	store.EXPECT().CollectionExists(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	store.EXPECT().Upsert(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	store.EXPECT().Search(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	pipeline := ingest.NewPipeline(&stubFetcher{}, &stubEmbedder{}, store, ingest.Config{
		Collection:    "test-collection",
		MaxTokens:     50,
		OverlapTokens: 5,
	})

	return &Deps{
		Engine:     &stubEngine{},
		Pipeline:   pipeline,
		Store:      store,
		Collection: "test-collection",
		Generation: &stubPinger{},
	}
}

func TestNewRouter(t *testing.T) {
	if router := NewRouter(newTestDeps(t)); router == nil {
		t.Fatal("NewRouter() returned nil")
	}
}

func TestRouter_Routes(t *testing.T) {
	router := NewRouter(newTestDeps(t))

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{
			name:       "GET /api/health",
			method:     http.MethodGet,
			path:       "/api/health",
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/v1/query",
			method:     http.MethodPost,
			path:       "/api/v1/query",
			body:       `{"question":"How does it work?"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "POST /api/v1/ingest",
			method:     http.MethodPost,
			path:       "/api/v1/ingest",
			body:       `{"url":"http://site.example.com/"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "query rejects GET",
			method:     http.MethodGet,
			path:       "/api/v1/query",
			wantStatus: http.StatusMethodNotAllowed,
		},
		{
			name:       "unknown route",
			method:     http.MethodGet,
			path:       "/nope",
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body != "" {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
		})
	}
}
