package domain

import (
	"regexp"
	"strings"
)

// whitespaceRegex matches one or more whitespace characters (spaces, tabs, newlines).
var whitespaceRegex = regexp.MustCompile(`\s+`)

// SearchConstraints is the structured query produced by expanding a
// free-text topic. Immutable once produced; cached per (topic, location).
type SearchConstraints struct {
	// PrimaryKeywords are the main search terms, most specific first.
	PrimaryKeywords []string `json:"primaryKeywords"`

	// Subfields are narrower research areas within the topic.
	Subfields []string `json:"subfields"`

	// ControlledTerms are controlled-vocabulary (MeSH-style) terms.
	ControlledTerms []string `json:"meshTerms"`

	// Synonyms are alternative phrasings of the primary keywords.
	Synonyms []string `json:"synonyms"`

	// RelatedConcepts are adjacent concepts that broaden the search.
	RelatedConcepts []string `json:"relatedConcepts"`

	// Exclude lists terms whose presence marks a work as off-topic.
	Exclude []string `json:"exclude"`
}

// FallbackConstraints returns the trivial single-keyword constraints used
// when the keyword-generation collaborator fails or returns a malformed
// shape.
func FallbackConstraints(topic string) SearchConstraints {
	return SearchConstraints{
		PrimaryKeywords: []string{topic},
		Exclude:         []string{"pediatric", "animal"},
	}
}

// IsValid reports whether the constraints carry at least one primary keyword.
// Responses without a primaryKeywords array are treated as malformed.
func (c SearchConstraints) IsValid() bool {
	for _, kw := range c.PrimaryKeywords {
		if strings.TrimSpace(kw) != "" {
			return true
		}
	}
	return false
}

// AllTerms returns every constraint term except exclusions, normalized,
// de-duplicated, in stable (insertion) order. Used for work-relevance
// matching during aggregation.
func (c SearchConstraints) AllTerms() []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, group := range [][]string{
		c.PrimaryKeywords, c.Subfields, c.ControlledTerms, c.Synonyms, c.RelatedConcepts,
	} {
		for _, t := range group {
			n := NormalizeTerm(t)
			if n == "" {
				continue
			}
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			terms = append(terms, n)
		}
	}
	return terms
}

// NormalizeTerm normalizes a search term by lowercasing, trimming, and
// collapsing internal whitespace.
func NormalizeTerm(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}
