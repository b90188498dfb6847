package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pharmiliar/cost-engine/internal/application/services"
)

// SearchHandler handles service search requests
type SearchHandler struct {
	search *services.SearchService
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *services.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Query        string `json:"query"`
	CategoryHint string `json:"category_hint,omitempty"`
}

// Search handles POST /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondWithError(w, http.StatusBadRequest, "query is required")
		return
	}

	result := h.search.Search(r.Context(), req.Query, req.CategoryHint)
	respondWithJSON(w, http.StatusOK, result)
}

// SearchGet handles GET /api/search?q=...&category=...
func (h *SearchHandler) SearchGet(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		respondWithError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}

	result := h.search.Search(r.Context(), query, r.URL.Query().Get("category"))
	respondWithJSON(w, http.StatusOK, result)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
