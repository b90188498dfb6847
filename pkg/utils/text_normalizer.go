package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// tierSuffixRe matches the pricing-tier suffix of a stored service
// description, e.g. "Chest X-ray-K" or "Blood Test -Nk".
var tierSuffixRe = regexp.MustCompile(`(?i)\s*-\s*(k|nk|p)\s*$`)

// SynonymConfig holds the phrase synonym table. Keys are the variant
// spellings, values the canonical form.
type SynonymConfig struct {
	Synonyms map[string]string `json:"synonyms"`
}

// defaultSynonyms covers the spellings observed in real patient queries.
var defaultSynonyms = map[string]string{
	"xray":        "x-ray",
	"x ray":       "x-ray",
	"cat scan":    "ct scan",
	"ultra sound": "ultrasound",
	"sonography":  "ultrasound",
	"ekg":         "ecg",
	"blood work":  "blood test",
	"bloodwork":   "blood test",
	"sugar test":  "blood sugar",
}

type synonymRule struct {
	pattern     *regexp.Regexp
	replacement string
}

// TextNormalizer canonicalizes free text and stored service descriptions
// so that both sides of a match comparison share one spelling.
type TextNormalizer struct {
	rules []synonymRule
}

// NewTextNormalizer creates a normalizer with the built-in synonym table.
func NewTextNormalizer() *TextNormalizer {
	return newTextNormalizer(defaultSynonyms)
}

// NewTextNormalizerFromFile creates a normalizer whose synonym table is
// loaded from a JSON config file, merged over the built-in defaults.
func NewTextNormalizerFromFile(configPath string) (*TextNormalizer, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read synonyms config: %w", err)
	}

	var cfg SynonymConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse synonyms config: %w", err)
	}

	merged := make(map[string]string, len(defaultSynonyms)+len(cfg.Synonyms))
	for k, v := range defaultSynonyms {
		merged[k] = v
	}
	for k, v := range cfg.Synonyms {
		merged[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}

	return newTextNormalizer(merged), nil
}

func newTextNormalizer(synonyms map[string]string) *TextNormalizer {
	// Longest variant first so "ultra sound scan" is not half-replaced
	// by a shorter entry.
	variants := make([]string, 0, len(synonyms))
	for v := range synonyms {
		variants = append(variants, v)
	}
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i]) != len(variants[j]) {
			return len(variants[i]) > len(variants[j])
		}
		return variants[i] < variants[j]
	})

	rules := make([]synonymRule, 0, len(variants))
	for _, v := range variants {
		rules = append(rules, synonymRule{
			pattern:     regexp.MustCompile(`\b` + regexp.QuoteMeta(v) + `\b`),
			replacement: synonyms[v],
		})
	}

	return &TextNormalizer{rules: rules}
}

// Normalize lowercases text, applies the synonym table at word
// boundaries, and collapses whitespace. Pure and stable, so the result
// can double as a cache key.
func (n *TextNormalizer) Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return ""
	}
	t = strings.Join(strings.Fields(t), " ")
	for _, rule := range n.rules {
		t = rule.pattern.ReplaceAllString(t, rule.replacement)
	}
	return strings.Join(strings.Fields(t), " ")
}

// Tokens returns the normalized tokens of text.
func (n *TextNormalizer) Tokens(text string) []string {
	return strings.Fields(n.Normalize(text))
}

// TokenSet returns the normalized tokens of text as a set.
func (n *TextNormalizer) TokenSet(text string) map[string]struct{} {
	tokens := n.Tokens(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}

// StripTierSuffix removes a trailing pricing-tier marker (-K, -Nk, -P)
// from a stored description, yielding the base description shared by
// all tier variants of the same service.
func StripTierSuffix(description string) string {
	return strings.TrimSpace(tierSuffixRe.ReplaceAllString(description, ""))
}

// Jaccard computes |a∩b| / |a∪b| over two token sets. Returns 0 when
// both sets are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
