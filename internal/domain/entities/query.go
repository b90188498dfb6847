package entities

import "time"

// Priority levels the analysis collaborator may attach to a query.
const (
	PriorityRoutine   = "routine"
	PriorityUrgent    = "urgent"
	PriorityEmergency = "emergency"
)

// QueryAnalysis is the structured interpretation of a free-text query,
// produced by the external collaborator or the keyword fallback.
type QueryAnalysis struct {
	Category    string   `json:"category"`
	ServiceType string   `json:"service_type,omitempty"`
	SearchTerms []string `json:"search_terms"`
	Context     string   `json:"context,omitempty"`
	Priority    string   `json:"priority,omitempty"`
	// Source records which path produced the analysis: "openai",
	// "heuristic", or "cache".
	Source string `json:"source,omitempty"`
}

// MatchCandidate is a catalog record scored against one search term.
type MatchCandidate struct {
	Record *ServiceRecord `json:"record"`
	Score  int            `json:"score"`
	Term   string         `json:"term,omitempty"`
}

// ResultItem is a service record in a final result list. Related
// suggestions are appended after primary matches and tagged, so they
// can be excluded from price-range totals.
type ResultItem struct {
	ServiceRecord
	Related bool `json:"related"`
}

// SearchResult is the public output of the search operation.
type SearchResult struct {
	Results      []ResultItem   `json:"results"`
	MinPrice     float64        `json:"min_price"`
	MaxPrice     float64        `json:"max_price"`
	RelatedCodes []string       `json:"related_codes"`
	Analysis     *QueryAnalysis `json:"analysis,omitempty"`
	CacheHit     bool           `json:"cache_hit"`
}

// CacheEntry is the persisted value of one resolved query, keyed by the
// normalized query string. Overwritten, never duplicated, when the same
// key recurs.
type CacheEntry struct {
	Analysis  *QueryAnalysis `json:"analysis"`
	Results   []ResultItem   `json:"results"`
	Timestamp time.Time      `json:"timestamp"`
}
