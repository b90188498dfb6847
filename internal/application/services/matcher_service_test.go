package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmiliar/cost-engine/pkg/utils"
)

func newTestMatcher(t *testing.T, limit int) *MatcherService {
	t.Helper()
	catalog := newTestCatalog(t, testRecords()...)
	return NewMatcherService(catalog, utils.NewTextNormalizer(), DefaultScoreWeights(), limit)
}

func TestMatcherFind_VerbatimPhraseRanksFirst(t *testing.T) {
	matcher := newTestMatcher(t, 0)

	candidates := matcher.Find("RADIOLOGY", "chest x-ray")
	require.NotEmpty(t, candidates)
	assert.Equal(t, "XR1020", candidates[0].Record.Code)
	// Verbatim phrase plus ordered tokens plus both boundary tokens
	// plus the precision bonus clears the confident-match band.
	assert.GreaterOrEqual(t, candidates[0].Score, 175)
}

func TestMatcherFind_SynonymsWidenTheNet(t *testing.T) {
	matcher := newTestMatcher(t, 0)

	// "xray" is rewritten to "x-ray" before scoring, so both spellings
	// land on the same records.
	spelled := matcher.Find("RADIOLOGY", "chest x-ray")
	folded := matcher.Find("RADIOLOGY", "chest xray")
	require.NotEmpty(t, spelled)
	require.NotEmpty(t, folded)
	assert.Equal(t, spelled[0].Record.Code, folded[0].Record.Code)
	assert.Equal(t, spelled[0].Score, folded[0].Score)
}

func TestMatcherFind_MoreSpecificTermScoresHigher(t *testing.T) {
	matcher := newTestMatcher(t, 0)

	broad := matcher.Find("RADIOLOGY", "x-ray")
	specific := matcher.Find("RADIOLOGY", "chest x-ray")
	require.NotEmpty(t, broad)
	require.NotEmpty(t, specific)
	assert.Greater(t, specific[0].Score, broad[0].Score)
}

func TestMatcherFind_EmptyTermYieldsCheapestUnscored(t *testing.T) {
	matcher := newTestMatcher(t, 0)

	candidates := matcher.Find("RADIOLOGY", "   ")
	require.NotEmpty(t, candidates)
	assert.Equal(t, "XR1020", candidates[0].Record.Code)
	for _, c := range candidates {
		assert.Zero(t, c.Score)
	}
}

func TestMatcherFind_NoMatchIsEmptyNotError(t *testing.T) {
	matcher := newTestMatcher(t, 0)

	assert.Empty(t, matcher.Find("RADIOLOGY", "dialysis"))
	assert.Empty(t, matcher.Find("NO_SUCH_CATEGORY", "x-ray"))
}

func TestMatcherFind_HonorsLimit(t *testing.T) {
	matcher := newTestMatcher(t, 2)

	candidates := matcher.Find("RADIOLOGY", "x-ray")
	assert.LessOrEqual(t, len(candidates), 2)
}

func TestMatcherFind_TieBreaksByAscendingPrice(t *testing.T) {
	catalog := newTestCatalog(t,
		record("XR1020", "Chest X-ray", "RADIOLOGY", 500, 0),
		record("XR1022", "Chest X-ray Portable", "RADIOLOGY", 900, 0),
		record("XR1019", "Chest X-ray Repeat", "RADIOLOGY", 300, 0),
	)
	matcher := NewMatcherService(catalog, utils.NewTextNormalizer(), DefaultScoreWeights(), 0)

	candidates := matcher.Find("RADIOLOGY", "chest")
	require.Len(t, candidates, 3)
	for i := 1; i < len(candidates); i++ {
		prev, cur := candidates[i-1], candidates[i]
		if prev.Score == cur.Score {
			assert.LessOrEqual(t, prev.Record.BasePrice, cur.Record.BasePrice)
		} else {
			assert.Greater(t, prev.Score, cur.Score)
		}
	}
}

func TestMatcherFind_TierMarkersIgnoredInScoring(t *testing.T) {
	matcher := newTestMatcher(t, 0)

	candidates := matcher.Find("GENERAL", "blood test")
	require.Len(t, candidates, 2)
	// Both tier variants match the base description equally; the
	// cheaper tier comes first.
	assert.Equal(t, candidates[0].Score, candidates[1].Score)
	assert.Equal(t, "BT-K", candidates[0].Record.Code)
}
