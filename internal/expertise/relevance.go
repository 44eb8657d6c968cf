package expertise

import (
	"strings"

	"github.com/helixir/expert-finder-service/internal/domain"
)

// Work-relevance scoring constants. A work below relevanceThreshold is
// discarded during aggregation.
const (
	relevanceThreshold = 0.3

	relevancePrimaryTitle   = 1.0
	relevanceSynonymTitle   = 0.7
	relevanceSubfieldTitle  = 0.5
	strongRelevanceCutoff   = 0.6
	moderateRelevanceCutoff = 0.4

	moderateWeight = 0.3

	// dilutionPenalty suppresses authors whose topical output is a sliver
	// of a large unrelated corpus.
	dilutionPenalty     = 0.3
	dilutionStrongShare = 0.10
	dilutionMinWorks    = 5
)

// WorkRelevance scores how topically on-target a single work is, in [0,1].
// Title matches against the constraint term groups dominate; concept tags
// contribute their source confidence when the tag text matches any
// constraint term. A work whose title contains an exclusion term scores 0.
func WorkRelevance(work domain.Work, constraints domain.SearchConstraints) float64 {
	title := domain.NormalizeTerm(work.Title)
	if title == "" {
		return 0
	}

	for _, ex := range constraints.Exclude {
		if ex = domain.NormalizeTerm(ex); ex != "" && strings.Contains(title, ex) {
			return 0
		}
	}

	var best float64

	for _, kw := range constraints.PrimaryKeywords {
		if kw = domain.NormalizeTerm(kw); kw != "" && strings.Contains(title, kw) {
			return relevancePrimaryTitle
		}
	}
	for _, group := range [][]string{constraints.Synonyms, constraints.ControlledTerms} {
		for _, term := range group {
			if term = domain.NormalizeTerm(term); term != "" && strings.Contains(title, term) {
				best = max(best, relevanceSynonymTitle)
			}
		}
	}
	for _, group := range [][]string{constraints.Subfields, constraints.RelatedConcepts} {
		for _, term := range group {
			if term = domain.NormalizeTerm(term); term != "" && strings.Contains(title, term) {
				best = max(best, relevanceSubfieldTitle)
			}
		}
	}

	terms := constraints.AllTerms()
	for _, concept := range work.Concepts {
		name := domain.NormalizeTerm(concept.Name)
		if name == "" {
			continue
		}
		for _, term := range terms {
			if strings.Contains(name, term) || strings.Contains(term, name) {
				best = max(best, concept.Score)
				break
			}
		}
	}

	return min(best, 1.0)
}

// FieldRelevance computes the 0-1 field relevance for a candidate: the
// share of retained works that are strongly relevant counts in full, the
// moderately relevant share counts at moderateWeight, capped at 1. When
// strong hits are under 10% of at least dilutionMinWorks works the score is
// multiplied by dilutionPenalty.
func FieldRelevance(c *domain.AuthorCandidate, constraints domain.SearchConstraints) float64 {
	total := len(c.Works)
	if total == 0 {
		return 0
	}

	var strong, moderate int
	for _, w := range c.Works {
		switch {
		case isStronglyRelevant(w, constraints):
			strong++
		case isModeratelyRelevant(w, constraints):
			moderate++
		}
	}

	score := float64(strong)/float64(total) + moderateWeight*float64(moderate)/float64(total)
	score = min(score, 1.0)

	if total >= dilutionMinWorks && float64(strong) < dilutionStrongShare*float64(total) {
		score *= dilutionPenalty
	}

	return score
}

// isStronglyRelevant reports whether a work's title contains a primary
// keyword or its precomputed relevance clears the strong cutoff.
func isStronglyRelevant(w domain.AuthorWork, constraints domain.SearchConstraints) bool {
	if w.Relevance >= strongRelevanceCutoff {
		return true
	}
	title := domain.NormalizeTerm(w.Title)
	for _, kw := range constraints.PrimaryKeywords {
		if kw = domain.NormalizeTerm(kw); kw != "" && strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// isModeratelyRelevant reports whether a work matches a subfield term or
// clears the moderate relevance cutoff.
func isModeratelyRelevant(w domain.AuthorWork, constraints domain.SearchConstraints) bool {
	if w.Relevance >= moderateRelevanceCutoff {
		return true
	}
	title := domain.NormalizeTerm(w.Title)
	for _, sf := range constraints.Subfields {
		if sf = domain.NormalizeTerm(sf); sf != "" && strings.Contains(title, sf) {
			return true
		}
	}
	return false
}
