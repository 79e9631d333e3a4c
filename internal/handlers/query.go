package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"nia/internal/contextutil"
	"nia/internal/rag"
)

// QueryHandler handles HTTP requests for retrieval queries.
type QueryHandler struct {
	engine rag.Engine
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(engine rag.Engine) *QueryHandler {
	return &QueryHandler{engine: engine}
}

// ServeHTTP handles POST requests to the query endpoint.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, rag.KindInvalidInput, "Method not allowed")
		return
	}

	var req rag.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "Invalid request body")
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "Question is required")
		return
	}
	if len(req.Question) < 3 {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "Question is too short")
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, rag.KindInvalidInput, "top_k must not be negative")
		return
	}

	resp, err := h.engine.Ask(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "query failed", "error", err)

		var ragErr *rag.Error
		if errors.As(err, &ragErr) {
			writeError(w, statusForKind(ragErr.Kind), ragErr.Kind, ragErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, rag.KindInternal, "Query failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
