package handlers

import (
	"context"
	"net/http"
	"time"

	"nia/internal/contextutil"
	"nia/internal/vectorstore"
)

const healthCheckTimeout = 5 * time.Second

// GenerationPinger checks that the generation endpoint is reachable.
type GenerationPinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports reachability of the system's dependencies.
type HealthHandler struct {
	store      vectorstore.VectorStore
	collection string
	generation GenerationPinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store vectorstore.VectorStore, collection string, generation GenerationPinger) *HealthHandler {
	return &HealthHandler{
		store:      store,
		collection: collection,
		generation: generation,
	}
}

// healthResponse reports each dependency independently so monitoring can tell
// which one is down.
type healthResponse struct {
	Status      string `json:"status"`
	VectorStore bool   `json:"vector_store"`
	Generation  bool   `json:"generation"`
}

// ServeHTTP handles GET requests to the health endpoint. Returns 200 when
// both dependencies are reachable, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()
	logger := contextutil.LoggerFromContext(ctx)

	storeOK := true
	if _, err := h.store.CollectionExists(ctx, h.collection); err != nil {
		logger.WarnContext(ctx, "vector store health check failed", "error", err)
		storeOK = false
	}

	generationOK := true
	if err := h.generation.Ping(ctx); err != nil {
		logger.WarnContext(ctx, "generation health check failed", "error", err)
		generationOK = false
	}

	resp := healthResponse{
		Status:      "ok",
		VectorStore: storeOK,
		Generation:  generationOK,
	}
	status := http.StatusOK
	if !storeOK || !generationOK {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
