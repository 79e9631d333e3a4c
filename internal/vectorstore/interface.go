package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks nia/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

// ErrUnavailable marks failures to reach the vector store. Callers can
// distinguish connectivity problems from bad requests.
var ErrUnavailable = errors.New("vector store unavailable")

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// Filter restricts a search to points whose payload fields exactly match the
// given values. A nil Filter matches every point.
type Filter map[string]string

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// Upsert inserts or updates points in the collection. Points that share
	// an ID with an existing point replace it.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search returns the k points nearest to the query vector, ordered by
	// descending similarity score. A non-nil filter narrows the search to
	// points whose payload matches it.
	Search(ctx context.Context, collection string, query []float32, k int, filter Filter) ([]SearchResult, error)

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)
}
