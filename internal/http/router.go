package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"nia/internal/handlers"
	"nia/internal/ingest"
	"nia/internal/rag"
	"nia/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Engine     rag.Engine
	Pipeline   *ingest.Pipeline
	Store      vectorstore.VectorStore
	Collection string
	Generation handlers.GenerationPinger
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	queryHandler := handlers.NewQueryHandler(deps.Engine)
	ingestHandler := handlers.NewIngestHandler(deps.Pipeline)
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Collection, deps.Generation)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Route("/v1", func(r chi.Router) {
			r.Method(http.MethodPost, "/query", queryHandler)
			r.Method(http.MethodPost, "/ingest", ingestHandler)
		})
	})

	return r
}
