package rag

import "nia/internal/chunk"

// AskRequest represents a retrieval query.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// TopK optionally overrides how many passages to retrieve.
	TopK int `json:"top_k,omitempty"`
}

// AskResponse represents the answer to a retrieval query.
type AskResponse struct {
	// Answer is the generated answer.
	Answer string `json:"answer"`
	// Citations are the distinct source URLs of the passages the answer drew
	// on, in the order they first appear in the assembled context.
	Citations []string `json:"citations"`
	// LatencyMS is the end-to-end query latency in milliseconds.
	LatencyMS int64 `json:"latency_ms"`
}

// Passage is a retrieved chunk with its similarity score.
type Passage struct {
	Chunk chunk.Chunk
	Score float32
}

// Context is the set of passages selected for the prompt, bounded by the
// token budget.
type Context struct {
	Passages   []Passage
	TokenCount int
}
