package handlers

import (
	"net/http"

	"github.com/pharmiliar/cost-engine/internal/application/services"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/observability"
)

// CatalogHandler handles catalog administration requests
type CatalogHandler struct {
	catalog *services.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// Reload handles POST /api/catalog/reload. The new snapshot is swapped
// in atomically; in-flight queries keep reading the old one.
func (h *CatalogHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(r.Context()); err != nil {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("catalog reload failed")
		respondWithError(w, http.StatusServiceUnavailable, "catalog reload failed")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "reloaded",
		"records": h.catalog.Size(),
	})
}

// Categories handles GET /api/catalog/categories
func (h *CatalogHandler) Categories(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories": h.catalog.Categories(),
	})
}
