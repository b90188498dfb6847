package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/internal/domain/providers"
	"github.com/pharmiliar/cost-engine/internal/infrastructure/observability"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// SearchOptions tune the pipeline's behavior. Both knobs exist because
// historical deployments disagreed on them; neither has a single
// canonical value.
type SearchOptions struct {
	// AnalyzerTimeout bounds the external collaborator call.
	AnalyzerTimeout time.Duration
	// RankByPriority moves consultation services ahead of other
	// results for urgent and emergency analyses.
	RankByPriority bool
	// RelatedLimit caps the appended related suggestions.
	RelatedLimit int
}

// DefaultSearchOptions returns the standard pipeline options
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		AnalyzerTimeout: 10 * time.Second,
		RankByPriority:  false,
		RelatedLimit:    3,
	}
}

// SearchService runs the query pipeline: cache lookup, external
// analysis (or keyword fallback), matching, tier resolution,
// aggregation, related suggestions, and cache store. Per-query failures
// never escape as errors; every call returns a populated or explicitly
// empty result.
type SearchService struct {
	catalog    *CatalogService
	matcher    *MatcherService
	tiers      *TierService
	cache      *QueryCacheService
	graph      *RelationshipService
	aggregator *AggregatorService
	rules      *CategoryRules
	analyzer   providers.QueryAnalyzer
	normalizer *utils.TextNormalizer
	metrics    *observability.Metrics
	opts       SearchOptions
}

// NewSearchService wires the pipeline. analyzer may be nil; the keyword
// heuristic then handles every query.
func NewSearchService(
	catalog *CatalogService,
	matcher *MatcherService,
	tiers *TierService,
	cache *QueryCacheService,
	graph *RelationshipService,
	aggregator *AggregatorService,
	rules *CategoryRules,
	analyzer providers.QueryAnalyzer,
	normalizer *utils.TextNormalizer,
	metrics *observability.Metrics,
	opts SearchOptions,
) *SearchService {
	if opts.AnalyzerTimeout <= 0 {
		opts.AnalyzerTimeout = 10 * time.Second
	}
	if opts.RelatedLimit <= 0 {
		opts.RelatedLimit = 3
	}
	return &SearchService{
		catalog:    catalog,
		matcher:    matcher,
		tiers:      tiers,
		cache:      cache,
		graph:      graph,
		aggregator: aggregator,
		rules:      rules,
		analyzer:   analyzer,
		normalizer: normalizer,
		metrics:    metrics,
		opts:       opts,
	}
}

// Search resolves a free-text query to priced catalog services with an
// estimated cost range and related suggestions. categoryHint, when
// non-empty, overrides the analysis category for ranking.
func (s *SearchService) Search(ctx context.Context, query, categoryHint string) *entities.SearchResult {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.SearchDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
		}
	}()

	logger := observability.LoggerFromContext(ctx)

	normalized := s.normalizer.Normalize(query)
	if normalized == "" {
		return &entities.SearchResult{
			Results:      []entities.ResultItem{},
			RelatedCodes: []string{},
		}
	}

	if entry, key, ok := s.cache.Get(ctx, query); ok {
		logger.Debug().Str("query", normalized).Str("cache_key", key).Msg("query cache hit")
		return s.resultFromEntry(entry)
	}

	// The collaborator call happens before any cache or graph write so
	// a slow analysis never blocks other queries.
	analysis := s.analyze(ctx, query)
	preferred := CanonicalCategory(categoryHint)
	if preferred == "" {
		preferred = CanonicalCategory(analysis.Category)
	}

	queryTokens := strings.Fields(normalized)
	candidates := s.match(analysis.SearchTerms, preferred)
	if len(candidates) == 0 {
		// Broader fallback: generic services in the default category.
		candidates = s.matchInCategory(s.rules.DefaultTerms(), s.rules.DefaultCategory())
	}

	primary := s.aggregator.Aggregate(candidates, preferred, queryTokens)
	if s.opts.RankByPriority {
		primary = rankByPriority(primary, analysis.Priority)
	}

	minPrice, maxPrice := s.priceRange(primary)
	relatedCodes := s.relatedCodes(primary)
	results := s.aggregator.AppendRelated(primary, relatedCodes, s.catalog)

	// A canceled query is abandoned before the cache-store step; the
	// partial work stays invisible.
	if ctx.Err() == nil && len(primary) > 0 {
		if err := s.cache.Put(ctx, query, analysis, results); err != nil {
			logger.Warn().Err(err).Msg("failed to persist query cache, continuing in-memory")
		}
		s.graph.Observe(entities.CacheEntry{Analysis: analysis, Results: results})
	}

	return &entities.SearchResult{
		Results:      results,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		RelatedCodes: relatedCodes,
		Analysis:     analysis,
	}
}

// analyze obtains a structured interpretation of the query from the
// external collaborator, degrading to the keyword heuristic on any
// failure or timeout.
func (s *SearchService) analyze(ctx context.Context, query string) *entities.QueryAnalysis {
	if s.analyzer == nil {
		return s.rules.Analyze(query)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.AnalyzerTimeout)
	defer cancel()

	analysis, err := s.analyzer.Analyze(callCtx, query)
	if err != nil || analysis == nil || len(analysis.SearchTerms) == 0 {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("query", query).
			Msg("query analysis failed, using keyword heuristic")
		return s.rules.Analyze(query)
	}
	return analysis
}

// match runs every search term through the matcher in every catalog
// category, preferred category first.
func (s *SearchService) match(terms []string, preferred string) []entities.MatchCandidate {
	categories := s.catalog.Categories()
	ordered := make([]string, 0, len(categories))
	if preferred != "" {
		for _, cat := range categories {
			if cat == preferred {
				ordered = append(ordered, cat)
			}
		}
	}
	for _, cat := range categories {
		if cat != preferred {
			ordered = append(ordered, cat)
		}
	}

	var candidates []entities.MatchCandidate
	for _, cat := range ordered {
		for _, term := range terms {
			candidates = append(candidates, s.matcher.Find(cat, term)...)
		}
	}
	return candidates
}

func (s *SearchService) matchInCategory(terms []string, category string) []entities.MatchCandidate {
	var candidates []entities.MatchCandidate
	for _, term := range terms {
		candidates = append(candidates, s.matcher.Find(category, term)...)
	}
	return candidates
}

// priceRange estimates the cost range of the primary results from each
// record's tier family; related suggestions are excluded.
func (s *SearchService) priceRange(primary []entities.ResultItem) (float64, float64) {
	var min, max float64
	first := true
	for _, item := range primary {
		if item.Related {
			continue
		}
		lo, hi, err := s.tiers.PriceRange(item.BaseDescription, item.Category)
		if err != nil || lo <= 0 {
			lo, hi = item.BasePrice, item.EffectiveMaxPrice()
		}
		if first {
			min, max = lo, hi
			first = false
			continue
		}
		if lo < min {
			min = lo
		}
		if hi > max {
			max = hi
		}
	}
	return min, max
}

// relatedCodes collects graph suggestions for the primary result codes
func (s *SearchService) relatedCodes(primary []entities.ResultItem) []string {
	seen := make(map[string]struct{}, len(primary))
	for _, item := range primary {
		seen[item.Code] = struct{}{}
	}

	var codes []string
	for _, item := range primary {
		for _, code := range s.graph.RelatedTo(item.Code, s.opts.RelatedLimit) {
			if _, ok := seen[code]; ok {
				continue
			}
			seen[code] = struct{}{}
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)

	if len(codes) > s.opts.RelatedLimit {
		codes = codes[:s.opts.RelatedLimit]
	}
	if codes == nil {
		codes = []string{}
	}
	return codes
}

// resultFromEntry reconstructs a search result from a cached entry
func (s *SearchService) resultFromEntry(entry *entities.CacheEntry) *entities.SearchResult {
	var primary []entities.ResultItem
	relatedCodes := []string{}
	for _, item := range entry.Results {
		if item.Related {
			relatedCodes = append(relatedCodes, item.Code)
		} else {
			primary = append(primary, item)
		}
	}

	minPrice, maxPrice := s.priceRange(primary)
	return &entities.SearchResult{
		Results:      entry.Results,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
		RelatedCodes: relatedCodes,
		Analysis:     entry.Analysis,
		CacheHit:     true,
	}
}

// rankByPriority moves consultation services to the front for urgent
// and emergency queries, keeping relative order otherwise.
func rankByPriority(items []entities.ResultItem, priority string) []entities.ResultItem {
	if priority != entities.PriorityUrgent && priority != entities.PriorityEmergency {
		return items
	}

	ranked := make([]entities.ResultItem, 0, len(items))
	var rest []entities.ResultItem
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.BaseDescription), "consultation") {
			ranked = append(ranked, item)
		} else {
			rest = append(rest, item)
		}
	}
	return append(ranked, rest...)
}
