package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pharmiliar/cost-engine/internal/domain/entities"
	"github.com/pharmiliar/cost-engine/pkg/utils"
)

// ScoreWeights are the additive integer weights of the match scorer.
// Each weight is a tunable; the defaults are the consolidated values.
type ScoreWeights struct {
	// VerbatimPhrase rewards the full normalized term appearing
	// verbatim in the description.
	VerbatimPhrase int
	// OrderedTokens rewards all term tokens appearing in the
	// description in the same relative order.
	OrderedTokens int
	// UnorderedTokens rewards all term tokens appearing out of order.
	UnorderedTokens int
	// BoundaryToken rewards a single token matched at a word boundary.
	BoundaryToken int
	// MidWordToken rewards a single token matched mid-word, when the
	// boundary bonus did not apply.
	MidWordToken int
	// Precision rewards short, specific descriptions over long ones
	// that happen to contain a token.
	Precision int
	// CodeMatch rewards the full term appearing in the service code.
	CodeMatch int
	// CodeToken rewards a single token appearing in the service code.
	CodeToken int
}

// DefaultScoreWeights returns the standard scoring weights
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{
		VerbatimPhrase:  100,
		OrderedTokens:   75,
		UnorderedTokens: 50,
		BoundaryToken:   20,
		MidWordToken:    10,
		Precision:       25,
		CodeMatch:       50,
		CodeToken:       10,
	}
}

// MatcherService ranks catalog candidates against a normalized search
// term within a category.
type MatcherService struct {
	catalog    *CatalogService
	normalizer *utils.TextNormalizer
	weights    ScoreWeights
	limit      int
}

// NewMatcherService creates a matcher over the given catalog
func NewMatcherService(catalog *CatalogService, normalizer *utils.TextNormalizer, weights ScoreWeights, limit int) *MatcherService {
	if limit <= 0 {
		limit = 10
	}
	return &MatcherService{
		catalog:    catalog,
		normalizer: normalizer,
		weights:    weights,
		limit:      limit,
	}
}

// Find returns up to the configured limit of scored candidates for a
// term within a category, best first. An empty term yields the
// cheapest records of the category unscored; no candidates is an empty
// list, never an error.
func (m *MatcherService) Find(category, term string) []entities.MatchCandidate {
	normTerm := m.normalizer.Normalize(term)
	if normTerm == "" {
		cheapest := m.catalog.Cheapest(category, m.limit)
		candidates := make([]entities.MatchCandidate, 0, len(cheapest))
		for _, rec := range cheapest {
			candidates = append(candidates, entities.MatchCandidate{Record: rec})
		}
		return candidates
	}

	tokens := strings.Fields(normTerm)
	boundaryRes := make([]*regexp.Regexp, len(tokens))
	for i, tok := range tokens {
		boundaryRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(tok) + `\b`)
	}

	var candidates []entities.MatchCandidate
	for _, rec := range m.catalog.ByCategory(category) {
		// Tier markers are stripped before any comparison; the base
		// description is what the patient's words are matched against.
		desc := m.normalizer.Normalize(rec.BaseDescription)
		code := strings.ToLower(rec.Code)

		score := m.score(desc, code, normTerm, tokens, boundaryRes)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, entities.MatchCandidate{
			Record: rec,
			Score:  score,
			Term:   normTerm,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Record.BasePrice < candidates[j].Record.BasePrice
	})

	if len(candidates) > m.limit {
		candidates = candidates[:m.limit]
	}
	return candidates
}

func (m *MatcherService) score(desc, code, normTerm string, tokens []string, boundaryRes []*regexp.Regexp) int {
	score := 0

	if strings.Contains(desc, normTerm) {
		score += m.weights.VerbatimPhrase
	}

	allPresent := true
	for _, tok := range tokens {
		if !strings.Contains(desc, tok) {
			allPresent = false
			break
		}
	}
	if allPresent && len(tokens) > 0 {
		if tokensInOrder(desc, tokens) {
			score += m.weights.OrderedTokens
		} else {
			score += m.weights.UnorderedTokens
		}
	}

	for i, tok := range tokens {
		switch {
		case boundaryRes[i].MatchString(desc):
			score += m.weights.BoundaryToken
		case strings.Contains(desc, tok):
			score += m.weights.MidWordToken
		}
	}

	if score > 0 && len(strings.Fields(desc)) <= len(tokens)+2 {
		score += m.weights.Precision
	}

	if strings.Contains(code, normTerm) {
		score += m.weights.CodeMatch
	}
	for _, tok := range tokens {
		if strings.Contains(code, tok) {
			score += m.weights.CodeToken
		}
	}

	return score
}

// tokensInOrder reports whether every token occurs in desc with the
// same relative order as in the search term.
func tokensInOrder(desc string, tokens []string) bool {
	offset := 0
	for _, tok := range tokens {
		idx := strings.Index(desc[offset:], tok)
		if idx < 0 {
			return false
		}
		offset += idx + len(tok)
	}
	return true
}
