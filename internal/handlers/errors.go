package handlers

import (
	"encoding/json"
	"net/http"

	"nia/internal/rag"
)

// errorBody is the structured error payload shared by all endpoints.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, statusCode int, kind, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// statusForKind maps a query error kind to its HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case rag.KindInvalidInput:
		return http.StatusBadRequest
	case rag.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case rag.KindEmbeddingUnavailable, rag.KindGenerationUnavailable, rag.KindUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
