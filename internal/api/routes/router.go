package routes

import (
	"net/http"

	"github.com/pharmiliar/cost-engine/internal/api/handlers"
	"github.com/pharmiliar/cost-engine/internal/api/middleware"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler  *handlers.SearchHandler
	catalogHandler *handlers.CatalogHandler
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	searchHandler *handlers.SearchHandler,
	catalogHandler *handlers.CatalogHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		searchHandler:  searchHandler,
		catalogHandler: catalogHandler,
		metrics:        metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.mux.HandleFunc("POST /api/search", r.searchHandler.Search)
	r.mux.HandleFunc("GET /api/search", r.searchHandler.SearchGet)

	r.mux.HandleFunc("GET /api/catalog/categories", r.catalogHandler.Categories)
	r.mux.HandleFunc("POST /api/catalog/reload", r.catalogHandler.Reload)

	var handler http.Handler = r.mux
	handler = middleware.MetricsMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.CORSMiddleware(handler)
	return handler
}
