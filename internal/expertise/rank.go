package expertise

import (
	"regexp"
	"sort"
	"time"

	"github.com/helixir/expert-finder-service/internal/domain"
)

// Normalization ceilings and gates for the composite score.
const (
	worksNormCeiling     = 50.0
	citationNormCeiling  = 1000.0
	dashboardCiteCeiling = 3000.0

	// Hard-filter and relevance-gate thresholds.
	hardFilterRelevance     = 0.2
	hardFilterMinWorks      = 5
	relevanceGateThreshold  = 0.4
	relevanceGateMultiplier = 0.7

	// tieEpsilon is the final-score band within which ties are broken by
	// secondary keys.
	tieEpsilon = 0.001

	// Dashboard activity normalization: works in the last year and the
	// last two years, each against its own ceiling.
	dashboard1yCeiling = 5.0
	dashboard2yCeiling = 10.0
	dashboard1yWeight  = 0.75
	dashboard2yWeight  = 0.25
)

// Recency decay bands: how much a work of a given age contributes to R.
const (
	recencyFull  = 1.0 // up to 4 years old
	recencyNear  = 0.7 // 5-7 years
	recencyFar   = 0.4 // 8-10 years
	recencyStale = 0.2 // older
	recencyFullY = 4
	recencyNearY = 7
	recencyFarY  = 10
)

// trialIntentPattern detects clinical-trial search intent from the raw
// topic text.
var trialIntentPattern = regexp.MustCompile(`(?i)\b(trial|phase|investigator)\b`)

// DetectTrialIntent reports whether the topic asks for clinical-trial
// expertise, which shifts ranking weight toward PI-likelihood.
func DetectTrialIntent(topic string) bool {
	return trialIntentPattern.MatchString(topic)
}

// scoreWeights is one fixed weight vector over the seven sub-scores. Every
// table sums to 1.0.
type scoreWeights struct {
	Works          float64
	Citations      float64
	Recency        float64
	FieldRelevance float64
	Seniority      float64
	TopicDominance float64
	PIScore        float64
}

// Hand-tuned weight tables, one per (trial-intent, location-scoped)
// combination. Changing a value changes result ordering for live
// queries; do not re-derive them casually.
var (
	standardGlobalWeights = scoreWeights{
		Works: 0.15, Citations: 0.20, Recency: 0.15, FieldRelevance: 0.20,
		Seniority: 0.10, TopicDominance: 0.10, PIScore: 0.10,
	}
	standardLocatedWeights = scoreWeights{
		Works: 0.15, Citations: 0.15, Recency: 0.15, FieldRelevance: 0.20,
		Seniority: 0.10, TopicDominance: 0.10, PIScore: 0.15,
	}
	trialGlobalWeights = scoreWeights{
		Works: 0.10, Citations: 0.15, Recency: 0.15, FieldRelevance: 0.15,
		Seniority: 0.15, TopicDominance: 0.05, PIScore: 0.25,
	}
	trialLocatedWeights = scoreWeights{
		Works: 0.10, Citations: 0.10, Recency: 0.15, FieldRelevance: 0.15,
		Seniority: 0.15, TopicDominance: 0.05, PIScore: 0.30,
	}
)

// weightsFor selects the weight table for the given mode flags.
func weightsFor(trialIntent, located bool) scoreWeights {
	switch {
	case trialIntent && located:
		return trialLocatedWeights
	case trialIntent:
		return trialGlobalWeights
	case located:
		return standardLocatedWeights
	default:
		return standardGlobalWeights
	}
}

// RankOptions carries the mode flags that select the scoring formula.
type RankOptions struct {
	// Dashboard selects the lightweight recency-biased formula instead of
	// the weighted sum.
	Dashboard bool

	// TrialIntent indicates the topic asks for clinical-trial expertise.
	TrialIntent bool

	// Located indicates a location constraint scoped the search.
	Located bool
}

// Ranker computes the composite score and deterministic ordering for
// verified candidates.
type Ranker struct {
	now func() time.Time
}

// NewRanker creates a Ranker using the system clock.
func NewRanker() *Ranker {
	return &Ranker{now: time.Now}
}

// NewRankerWithClock creates a Ranker with an injected clock for
// deterministic recency decay in tests.
func NewRankerWithClock(now func() time.Time) *Ranker {
	return &Ranker{now: now}
}

// Experts scores and sorts verified candidates. Candidates failing the
// hard filters are excluded. The final score is either the mode-selected
// weighted sum or the dashboard formula, gated by field relevance; the
// location bonus is kept as a separate field and used only in tie-breaks.
func (r *Ranker) Experts(verified []domain.VerifiedCandidate, opts RankOptions) []domain.RankedExpert {
	currentYear := r.now().Year()
	weights := weightsFor(opts.TrialIntent, opts.Located)

	var maxRawPI float64
	for i := range verified {
		maxRawPI = max(maxRawPI, verified[i].RawPIScore)
	}

	ranked := make([]domain.RankedExpert, 0, len(verified))
	for i := range verified {
		vc := &verified[i]
		topicWorks := len(vc.Works)

		// Hard filters.
		if topicWorks < 1 {
			continue
		}
		if vc.FieldRelevance < hardFilterRelevance && topicWorks >= hardFilterMinWorks {
			continue
		}

		scores := domain.ScoreBreakdown{
			Works:          min(1, float64(topicWorks)/worksNormCeiling),
			Recency:        recencyScore(vc.Works, currentYear),
			FieldRelevance: vc.FieldRelevance,
			Seniority:      min(1, float64(vc.LastAuthorCount+vc.CorrespondingAuthorCount)/float64(topicWorks)),
			Location:       vc.LocationBonus,
		}

		if opts.Dashboard {
			scores.Citations = min(1, float64(vc.TotalCitations)/dashboardCiteCeiling)
		} else {
			scores.Citations = min(1, float64(vc.TotalCitations)/citationNormCeiling)
		}

		if vc.LifetimeWorks > 0 {
			scores.TopicDominance = min(1, float64(topicWorks)/float64(vc.LifetimeWorks))
		}
		if maxRawPI > 0 {
			scores.PIScore = vc.RawPIScore / maxRawPI
		}

		if opts.Dashboard {
			activity := dashboard1yWeight*min(1, float64(vc.RecentWorks1y)/dashboard1yCeiling) +
				dashboard2yWeight*min(1, float64(vc.RecentWorks2y)/dashboard2yCeiling)
			scores.Final = 0.5*activity + 0.5*scores.Citations
		} else {
			scores.Final = weights.Works*scores.Works +
				weights.Citations*scores.Citations +
				weights.Recency*scores.Recency +
				weights.FieldRelevance*scores.FieldRelevance +
				weights.Seniority*scores.Seniority +
				weights.TopicDominance*scores.TopicDominance +
				weights.PIScore*scores.PIScore
		}

		// Topic-relevance gate.
		if vc.FieldRelevance < relevanceGateThreshold {
			scores.Final *= relevanceGateMultiplier
		}

		ranked = append(ranked, domain.RankedExpert{
			VerifiedCandidate: *vc,
			Scores:            scores,
			RealWorksCount:    vc.LifetimeWorks,
			RealCitationCount: vc.LifetimeCitations,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return rankedLess(&ranked[i], &ranked[j])
	})

	return ranked
}

// recencyScore averages the per-work recency decay over a candidate's
// retained works.
func recencyScore(works []domain.AuthorWork, currentYear int) float64 {
	if len(works) == 0 {
		return 0
	}
	var sum float64
	for _, w := range works {
		sum += recencyDecay(currentYear - w.Year)
	}
	return sum / float64(len(works))
}

// recencyDecay maps a work's age in years to its decay band.
func recencyDecay(age int) float64 {
	switch {
	case age <= recencyFullY:
		return recencyFull
	case age <= recencyNearY:
		return recencyNear
	case age <= recencyFarY:
		return recencyFar
	default:
		return recencyStale
	}
}

// rankedLess implements the sort order: final score descending, with ties
// inside tieEpsilon broken by seniority, PI score, topic work count, and
// location bonus, all descending, then author ID for full determinism.
func rankedLess(a, b *domain.RankedExpert) bool {
	if diff := a.Scores.Final - b.Scores.Final; diff > tieEpsilon || diff < -tieEpsilon {
		return diff > 0
	}
	if a.Scores.Seniority != b.Scores.Seniority {
		return a.Scores.Seniority > b.Scores.Seniority
	}
	if a.Scores.PIScore != b.Scores.PIScore {
		return a.Scores.PIScore > b.Scores.PIScore
	}
	if len(a.Works) != len(b.Works) {
		return len(a.Works) > len(b.Works)
	}
	if a.Scores.Location != b.Scores.Location {
		return a.Scores.Location > b.Scores.Location
	}
	return a.AuthorID < b.AuthorID
}
