package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"nia/internal/contextutil"
	"nia/internal/ingest"
	"nia/internal/rag"
)

// IngestHandler handles HTTP requests to ingest a site into the corpus.
type IngestHandler struct {
	pipeline *ingest.Pipeline
}

// NewIngestHandler creates a new IngestHandler.
func NewIngestHandler(pipeline *ingest.Pipeline) *IngestHandler {
	return &IngestHandler{pipeline: pipeline}
}

// ServeHTTP handles POST requests to the ingest endpoint. The run is
// synchronous: the response carries the full ingestion report.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, rag.KindInvalidInput, "Method not allowed")
		return
	}

	var req ingest.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "Invalid request body")
		return
	}

	req.SeedURL = strings.TrimSpace(req.SeedURL)
	if req.SeedURL == "" {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "url is required")
		return
	}
	if parsed, err := url.Parse(req.SeedURL); err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "url must be an http or https URL")
		return
	}
	if req.MaxTokens < 0 || req.OverlapTokens < 0 {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "chunking parameters must not be negative")
		return
	}
	if req.MaxTokens > 0 && req.OverlapTokens >= req.MaxTokens {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "overlap_tokens must be smaller than max_tokens")
		return
	}

	report, err := h.pipeline.Run(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "url", req.SeedURL, "error", err)
		kind := rag.KindInternal
		message := "Ingestion failed"
		if errors.Is(err, ingest.ErrFetch) {
			kind = rag.KindUpstreamUnavailable
			message = "Failed to fetch the requested site"
		}
		writeError(w, statusForKind(kind), kind, message)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
