package services

import (
	"sort"
	"strings"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// AggregatorService merges matcher output across search terms and
// categories into one deduplicated, ranked result list.
type AggregatorService struct {
	normalizer *utils.TextNormalizer
}

// NewAggregatorService creates an aggregator
func NewAggregatorService(normalizer *utils.TextNormalizer) *AggregatorService {
	return &AggregatorService{normalizer: normalizer}
}

// Aggregate flattens candidates from every term tried in every
// category, dedupes by code keeping the highest-scoring producer, and
// sorts by preferred category, query-token presence, then ascending
// base price.
func (a *AggregatorService) Aggregate(candidates []entities.MatchCandidate, preferredCategory string, queryTokens []string) []entities.ResultItem {
	best := make(map[string]entities.MatchCandidate)
	order := make([]string, 0, len(candidates))

	for _, cand := range candidates {
		if cand.Record == nil {
			continue
		}
		code := cand.Record.Code
		prev, seen := best[code]
		if !seen {
			best[code] = cand
			order = append(order, code)
			continue
		}
		if cand.Score > prev.Score {
			best[code] = cand
		}
	}

	preferred := CanonicalCategory(preferredCategory)
	items := make([]entities.ResultItem, 0, len(order))
	for _, code := range order {
		items = append(items, entities.ResultItem{ServiceRecord: *best[code].Record})
	}

	sort.SliceStable(items, func(i, j int) bool {
		ci := CanonicalCategory(items[i].Category) == preferred
		cj := CanonicalCategory(items[j].Category) == preferred
		if ci != cj {
			return ci
		}
		ti := a.containsAnyToken(items[i].BaseDescription, queryTokens)
		tj := a.containsAnyToken(items[j].BaseDescription, queryTokens)
		if ti != tj {
			return ti
		}
		return items[i].BasePrice < items[j].BasePrice
	})

	return items
}

func (a *AggregatorService) containsAnyToken(description string, tokens []string) bool {
	desc := a.normalizer.Normalize(description)
	for _, tok := range tokens {
		if tok != "" && strings.Contains(desc, tok) {
			return true
		}
	}
	return false
}

// AppendRelated appends graph-suggested services after the primary
// results, tagged so callers can exclude them from price totals.
// Suggestions already present as primaries are skipped.
func (a *AggregatorService) AppendRelated(primary []entities.ResultItem, relatedCodes []string, catalog *CatalogService) []entities.ResultItem {
	seen := make(map[string]struct{}, len(primary))
	for _, item := range primary {
		seen[item.Code] = struct{}{}
	}

	results := primary
	for _, code := range relatedCodes {
		if _, ok := seen[code]; ok {
			continue
		}
		rec, ok := catalog.ByCode(code)
		if !ok {
			continue
		}
		seen[code] = struct{}{}
		results = append(results, entities.ResultItem{
			ServiceRecord: *rec,
			Related:       true,
		})
	}
	return results
}
