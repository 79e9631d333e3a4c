package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"nia/internal/vectorstore"
	"nia/internal/vectorstore/mocks"
)

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name           string
		storeErr       error
		pingErr        error
		wantStatus     int
		wantStore      bool
		wantGeneration bool
	}{
		{
			name:           "all healthy",
			wantStatus:     http.StatusOK,
			wantStore:      true,
			wantGeneration: true,
		},
		{
			name:           "store down",
			storeErr:       fmt.Errorf("%w: connection refused", vectorstore.ErrUnavailable),
			wantStatus:     http.StatusServiceUnavailable,
			wantStore:      false,
			wantGeneration: true,
		},
		{
			name:           "generation down",
			pingErr:        fmt.Errorf("endpoint unreachable"),
			wantStatus:     http.StatusServiceUnavailable,
			wantStore:      true,
			wantGeneration: false,
		},
		{
			name:           "everything down",
			storeErr:       fmt.Errorf("connection refused"),
			pingErr:        fmt.Errorf("endpoint unreachable"),
			wantStatus:     http.StatusServiceUnavailable,
			wantStore:      false,
			wantGeneration: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := mocks.NewMockVectorStore(ctrl)
			store.EXPECT().
				CollectionExists(gomock.Any(), "test-collection").
				Return(tt.storeErr == nil, tt.storeErr)

			handler := NewHealthHandler(store, "test-collection", &stubPinger{err: tt.pingErr})

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, expected %d", rec.Code, tt.wantStatus)
			}

			var resp healthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.VectorStore != tt.wantStore {
				t.Errorf("VectorStore = %v, expected %v", resp.VectorStore, tt.wantStore)
			}
			if resp.Generation != tt.wantGeneration {
				t.Errorf("Generation = %v, expected %v", resp.Generation, tt.wantGeneration)
			}
		})
	}
}
