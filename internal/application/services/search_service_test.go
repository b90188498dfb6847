package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// fakeAnalyzer returns a fixed analysis, or an error, and counts calls.
type fakeAnalyzer struct {
	analysis *entities.QueryAnalysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string) (*entities.QueryAnalysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

type searchFixture struct {
	service *SearchService
	cache   *QueryCacheService
	graph   *RelationshipService
}

func newSearchFixture(t *testing.T, analyzer *fakeAnalyzer, opts SearchOptions) *searchFixture {
	t.Helper()
	return newSearchFixtureWith(t, analyzer, opts, testRecords()...)
}

func newSearchFixtureWith(t *testing.T, analyzer *fakeAnalyzer, opts SearchOptions, records ...*entities.ServiceRecord) *searchFixture {
	t.Helper()
	normalizer := utils.NewTextNormalizer()
	catalog := newTestCatalog(t, records...)
	matcher := NewMatcherService(catalog, normalizer, DefaultScoreWeights(), 0)
	tiers := NewTierService(catalog)
	cache := NewQueryCacheService(normalizer, nil, 0.5, nil)
	graph := NewRelationshipService()
	aggregator := NewAggregatorService(normalizer)
	rules := DefaultCategoryRules(normalizer)

	var svc *SearchService
	if analyzer != nil {
		svc = NewSearchService(catalog, matcher, tiers, cache, graph, aggregator, rules, analyzer, normalizer, nil, opts)
	} else {
		svc = NewSearchService(catalog, matcher, tiers, cache, graph, aggregator, rules, nil, normalizer, nil, opts)
	}
	return &searchFixture{service: svc, cache: cache, graph: graph}
}

func radiologyAnalysis(terms ...string) *entities.QueryAnalysis {
	return &entities.QueryAnalysis{
		Category:    "RADIOLOGY",
		ServiceType: "imaging",
		SearchTerms: terms,
		Priority:    entities.PriorityRoutine,
		Source:      "openai",
	}
}

func TestSearch_TopMatchForChestXray(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: radiologyAnalysis("chest x-ray")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "chest x-ray", "")
	require.NotEmpty(t, result.Results)
	assert.Equal(t, "XR1020", result.Results[0].Code)
	assert.Equal(t, 500.0, result.Results[0].BasePrice)
	assert.False(t, result.CacheHit)
	assert.Equal(t, 500.0, result.MinPrice)
}

func TestSearch_ReorderedQueryHitsCacheOfFirst(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: radiologyAnalysis("chest x-ray")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())
	ctx := context.Background()

	first := fx.service.Search(ctx, "chest x-ray", "")
	require.NotEmpty(t, first.Results)
	assert.Equal(t, 1, analyzer.calls)

	// Same token set, different order: served from cache without a
	// second collaborator call.
	second := fx.service.Search(ctx, "xray chest", "")
	require.NotEmpty(t, second.Results)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results[0].Code, second.Results[0].Code)
	assert.Equal(t, 1, analyzer.calls)
}

func TestSearch_AnalyzerFailureFallsBackToHeuristic(t *testing.T) {
	analyzer := &fakeAnalyzer{err: errors.New("upstream unavailable")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "chest x-ray", "")
	require.NotEmpty(t, result.Results)
	assert.Equal(t, "XR1020", result.Results[0].Code)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, "heuristic", result.Analysis.Source)
}

func TestSearch_NilAnalyzerUsesHeuristic(t *testing.T) {
	fx := newSearchFixture(t, nil, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "blood test", "")
	require.NotEmpty(t, result.Results)
	require.NotNil(t, result.Analysis)
	assert.Equal(t, "heuristic", result.Analysis.Source)
	assert.Equal(t, "BT-K", result.Results[0].Code)
}

func TestSearch_EmptyQueryReturnsEmptyResult(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: radiologyAnalysis("chest x-ray")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "   ", "")
	assert.Empty(t, result.Results)
	assert.Empty(t, result.RelatedCodes)
	assert.Zero(t, analyzer.calls)
	assert.Zero(t, fx.cache.Len())
}

func TestSearch_UnmatchableQueryFallsBackToBroaderServices(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &entities.QueryAnalysis{
		Category:    "GENERAL",
		SearchTerms: []string{"zzzz-unknown-procedure"},
		Source:      "openai",
	}}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "zzzz unknown procedure", "")
	// Consultation and examination defaults stand in for a dead-end
	// term list.
	require.NotEmpty(t, result.Results)
	assert.Equal(t, "AC001", result.Results[0].Code)
}

func TestSearch_CategoryHintOverridesAnalysis(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: radiologyAnalysis("chest x-ray", "consultation")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "chest x-ray", "general")
	require.NotEmpty(t, result.Results)
	assert.Equal(t, "GENERAL", result.Results[0].Category)
}

func TestSearch_TierFamilySpansPriceRange(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &entities.QueryAnalysis{
		Category:    "GENERAL",
		SearchTerms: []string{"blood test"},
		Source:      "openai",
	}}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "blood test", "")
	require.NotEmpty(t, result.Results)
	assert.Equal(t, 200.0, result.MinPrice)
	assert.Equal(t, 350.0, result.MaxPrice)
}

func TestSearch_PriceRangeEnvelopeAcrossBaseServices(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: &entities.QueryAnalysis{
		Category:    "GENERAL",
		SearchTerms: []string{"blood"},
		Source:      "openai",
	}}
	fx := newSearchFixtureWith(t, analyzer, DefaultSearchOptions(),
		record("BC001", "Blood Consultation", "GENERAL", 150, 0),
		record("BT-K", "Blood Test-K", "GENERAL", 200, 0),
		record("BT-NK", "Blood Test-Nk", "GENERAL", 350, 0),
	)

	result := fx.service.Search(context.Background(), "blood", "")
	require.Len(t, result.Results, 3)

	// Primaries are ranked alternatives, so the range spans the
	// cheapest and priciest options; the two base services' ranges are
	// never summed.
	assert.Equal(t, 150.0, result.MinPrice)
	assert.Equal(t, 350.0, result.MaxPrice)
}

func TestSearch_RelatedSuggestionsAppendedAndTagged(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: radiologyAnalysis("chest x-ray")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())
	ctx := context.Background()

	// Earlier traffic taught the graph that chest x-rays co-occur with
	// specialist consultations.
	fx.graph.AddObservation("XR1020", []string{"AC002"}, nil, nil)

	result := fx.service.Search(ctx, "chest x-ray", "")
	require.NotEmpty(t, result.Results)
	assert.Contains(t, result.RelatedCodes, "AC002")

	var related []entities.ResultItem
	for _, item := range result.Results {
		if item.Related {
			related = append(related, item)
		}
	}
	require.NotEmpty(t, related)
	assert.Equal(t, "AC002", related[0].Code)

	// Related suggestions never widen the estimated price range.
	assert.Equal(t, 500.0, result.MinPrice)
}

func TestSearch_SuccessfulQueryFeedsCacheAndGraph(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: radiologyAnalysis("x-ray")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	result := fx.service.Search(context.Background(), "x-ray", "")
	require.NotEmpty(t, result.Results)

	assert.Equal(t, 1, fx.cache.Len())
	// Multiple primaries become mutually related.
	assert.Greater(t, fx.graph.EdgeCount(), 0)
}

func TestSearch_CanceledContextSkipsCacheStore(t *testing.T) {
	analyzer := &fakeAnalyzer{analysis: radiologyAnalysis("chest x-ray")}
	fx := newSearchFixture(t, analyzer, DefaultSearchOptions())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fx.service.Search(ctx, "chest x-ray", "")
	assert.Zero(t, fx.cache.Len())
	assert.Zero(t, fx.graph.EdgeCount())
}

func TestSearch_PriorityRankingMovesConsultationsFirst(t *testing.T) {
	analysis := &entities.QueryAnalysis{
		Category:    "GENERAL",
		SearchTerms: []string{"consultation", "blood test"},
		Priority:    entities.PriorityEmergency,
		Source:      "openai",
	}
	opts := DefaultSearchOptions()
	opts.RankByPriority = true
	fx := newSearchFixture(t, &fakeAnalyzer{analysis: analysis}, opts)

	result := fx.service.Search(context.Background(), "emergency doctor and blood work", "")
	require.NotEmpty(t, result.Results)
	assert.Contains(t, result.Results[0].BaseDescription, "Consultation")
}
