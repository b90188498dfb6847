package services

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// CategoryRule maps trigger keywords to a catalog category, with extra
// search terms that experience shows belong to that kind of query.
type CategoryRule struct {
	Name       string   `json:"name"`
	Keywords   []string `json:"keywords"`
	Category   string   `json:"category"`
	ExtraTerms []string `json:"extra_terms"`
	Weight     int      `json:"weight"`
}

// ruleTableConfig is the JSON shape of an external rule table.
type ruleTableConfig struct {
	DefaultCategory string         `json:"default_category"`
	DefaultTerms    []string       `json:"default_terms"`
	Rules           []CategoryRule `json:"rules"`
}

// CategoryRules is the deterministic keyword heuristic used when the
// external analysis collaborator is unavailable. One declarative table
// instead of scattered keyword checks, so every rule is auditable and
// unit-testable.
type CategoryRules struct {
	rules           []CategoryRule
	defaultCategory string
	defaultTerms    []string
	normalizer      *utils.TextNormalizer
}

// DefaultCategoryRules returns the built-in rule table
func DefaultCategoryRules(normalizer *utils.TextNormalizer) *CategoryRules {
	return &CategoryRules{
		rules: []CategoryRule{
			{
				Name:       "imaging",
				Keywords:   []string{"x-ray", "scan", "ct", "mri", "ultrasound", "imaging", "radiology"},
				Category:   "RADIOLOGY",
				ExtraTerms: []string{"x-ray", "ct scan", "ultrasound"},
				Weight:     2,
			},
			{
				Name:       "chest",
				Keywords:   []string{"chest", "lung", "breathing", "cough", "smoking"},
				Category:   "RADIOLOGY",
				ExtraTerms: []string{"chest x-ray", "consultation"},
				Weight:     1,
			},
			{
				Name:       "laboratory",
				Keywords:   []string{"blood", "urine", "sugar", "test", "malaria", "typhoid"},
				Category:   "GENERAL",
				ExtraTerms: []string{"blood test", "consultation"},
				Weight:     1,
			},
			{
				Name:       "consultation",
				Keywords:   []string{"consultation", "doctor", "checkup", "check-up", "examination"},
				Category:   "GENERAL",
				ExtraTerms: []string{"consultation", "examination"},
				Weight:     1,
			},
		},
		defaultCategory: "GENERAL",
		defaultTerms:    []string{"consultation", "examination"},
		normalizer:      normalizer,
	}
}

// LoadCategoryRules reads a rule table from a JSON config file
func LoadCategoryRules(path string, normalizer *utils.TextNormalizer) (*CategoryRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category rules: %w", err)
	}

	var cfg ruleTableConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse category rules: %w", err)
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = "GENERAL"
	}
	if len(cfg.DefaultTerms) == 0 {
		cfg.DefaultTerms = []string{"consultation", "examination"}
	}

	return &CategoryRules{
		rules:           cfg.Rules,
		defaultCategory: cfg.DefaultCategory,
		defaultTerms:    cfg.DefaultTerms,
		normalizer:      normalizer,
	}, nil
}

// DefaultCategory returns the category used when no rule fires
func (r *CategoryRules) DefaultCategory() string {
	return r.defaultCategory
}

// DefaultTerms returns the broad fallback search terms
func (r *CategoryRules) DefaultTerms() []string {
	return r.defaultTerms
}

// Analyze produces a deterministic analysis for a query: the category
// of the highest-weighted rules whose keywords appear, plus the query's
// own tokens and the firing rules' extra terms as search terms.
func (r *CategoryRules) Analyze(query string) *entities.QueryAnalysis {
	normalized := r.normalizer.Normalize(query)
	tokens := strings.Fields(normalized)

	scores := make(map[string]int)
	seen := make(map[string]struct{})
	terms := make([]string, 0, len(tokens))

	addTerm := func(t string) {
		t = r.normalizer.Normalize(t)
		if t == "" {
			return
		}
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			terms = append(terms, t)
		}
	}

	// The query itself and its tokens always count as search terms.
	addTerm(normalized)
	for _, tok := range tokens {
		addTerm(tok)
	}

	for _, rule := range r.rules {
		fired := false
		for _, kw := range rule.Keywords {
			if containsKeyword(normalized, r.normalizer.Normalize(kw)) {
				fired = true
				break
			}
		}
		if !fired {
			continue
		}
		weight := rule.Weight
		if weight <= 0 {
			weight = 1
		}
		scores[CanonicalCategory(rule.Category)] += weight
		for _, extra := range rule.ExtraTerms {
			addTerm(extra)
		}
	}

	category := r.defaultCategory
	bestScore := 0
	for cat, score := range scores {
		if score > bestScore || (score == bestScore && cat < category) {
			category = cat
			bestScore = score
		}
	}

	return &entities.QueryAnalysis{
		Category:    category,
		ServiceType: "examination",
		SearchTerms: terms,
		Context:     "keyword heuristic analysis",
		Priority:    entities.PriorityRoutine,
		Source:      "heuristic",
	}
}

// containsKeyword matches a keyword at token boundaries within the
// normalized query.
func containsKeyword(normalizedQuery, keyword string) bool {
	if keyword == "" {
		return false
	}
	padded := " " + normalizedQuery + " "
	return strings.Contains(padded, " "+keyword+" ") ||
		strings.Contains(padded, " "+keyword+"-") ||
		strings.Contains(padded, "-"+keyword+" ")
}
