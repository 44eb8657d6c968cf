package expertise

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/helixir/expert-finder-service/internal/domain"
)

// trialPattern matches clinical-trial language in work titles.
var trialPattern = regexp.MustCompile(`(?i)\b(randomi[sz]ed|clinical trial|phase\s+(i{1,3}|iv|[1-4])\b|double[- ]blind|placebo[- ]controlled|multicenter trial|rct)\b`)

// trialConcepts are controlled-vocabulary concept tags that mark a work as
// a trial publication.
var trialConcepts = []string{
	"clinical trial",
	"randomized controlled trial",
}

// isTrialWork reports whether a work looks like a clinical-trial
// publication, from its title or its concept tags.
func isTrialWork(work domain.Work) bool {
	if trialPattern.MatchString(work.Title) {
		return true
	}
	for _, concept := range work.Concepts {
		name := domain.NormalizeTerm(concept.Name)
		for _, trial := range trialConcepts {
			if strings.Contains(name, trial) {
				return true
			}
		}
	}
	return false
}

// Aggregator folds a work corpus into one candidate per distinct author.
type Aggregator struct {
	now func() time.Time
}

// NewAggregator creates an Aggregator using the system clock.
func NewAggregator() *Aggregator {
	return &Aggregator{now: time.Now}
}

// NewAggregatorWithClock creates an Aggregator with an injected clock for
// deterministic recency buckets in tests.
func NewAggregatorWithClock(now func() time.Time) *Aggregator {
	return &Aggregator{now: now}
}

// Aggregate folds works into author candidates. Works below the relevance
// threshold are skipped entirely. When a location constraint is active,
// candidates with no location match are dropped and survivors carry their
// tiered location bonus. Field relevance is computed on the frozen work
// lists before returning. The result is ordered by topic citation count
// descending for deterministic downstream stage cutoffs.
func (a *Aggregator) Aggregate(works []domain.Work, constraints domain.SearchConstraints, loc Location) []*domain.AuthorCandidate {
	currentYear := a.now().Year()
	byAuthor := make(map[string]*domain.AuthorCandidate)

	for _, work := range works {
		relevance := WorkRelevance(work, constraints)
		if relevance < relevanceThreshold {
			continue
		}
		trial := isTrialWork(work)

		for _, authorship := range work.Authorships {
			if authorship.AuthorID == "" {
				continue
			}

			c, ok := byAuthor[authorship.AuthorID]
			if !ok {
				c = domain.NewAuthorCandidate(authorship.AuthorID, authorship.AuthorName, authorship.ORCID)
				byAuthor[authorship.AuthorID] = c
			}
			if c.ORCID == "" && authorship.ORCID != "" {
				c.ORCID = authorship.ORCID
			}

			c.Works = append(c.Works, domain.AuthorWork{
				WorkID:          work.ID,
				Title:           work.Title,
				Year:            work.Year,
				Citations:       work.CitedByCount,
				DOI:             work.DOI,
				Position:        authorship.Position,
				IsTrial:         trial,
				Relevance:       relevance,
				IsCorresponding: authorship.IsCorresponding,
			})

			c.TotalCitations += work.CitedByCount
			c.RelevanceSum += relevance

			if age := currentYear - work.Year; age >= 0 {
				if age <= 1 {
					c.RecentWorks1y++
				}
				if age <= 2 {
					c.RecentWorks2y++
				}
				if age <= 5 {
					c.RecentWorks5y++
				}
			}

			switch authorship.Position {
			case domain.PositionFirst:
				c.FirstAuthorCount++
			case domain.PositionLast:
				c.LastAuthorCount++
			}
			if authorship.IsCorresponding {
				c.CorrespondingAuthorCount++
			}

			for _, inst := range authorship.Institutions {
				c.AddInstitution(inst)
			}
		}
	}

	candidates := make([]*domain.AuthorCandidate, 0, len(byAuthor))
	for _, c := range byAuthor {
		if !loc.IsZero() {
			bonus := loc.MatchCandidate(c)
			if bonus == 0 {
				continue
			}
			c.LocationBonus = bonus
		}

		c.FieldRelevance = FieldRelevance(c, constraints)
		c.RawPIScore = rawPIScore(c)

		// Search-derived fallbacks; enrichment overwrites these when the
		// authoritative profile is available.
		c.LifetimeWorks = len(c.Works)
		c.LifetimeCitations = c.TotalCitations

		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].TotalCitations != candidates[j].TotalCitations {
			return candidates[i].TotalCitations > candidates[j].TotalCitations
		}
		return candidates[i].AuthorID < candidates[j].AuthorID
	})

	return candidates
}

// rawPIScore is the unnormalized principal-investigator likelihood:
// 0.7 x trial last-author count + 0.3 x trial work count.
func rawPIScore(c *domain.AuthorCandidate) float64 {
	trialWorks, trialLastAuthor := trialCounts(c)
	return 0.7*float64(trialLastAuthor) + 0.3*float64(trialWorks)
}

// trialCounts returns the candidate's trial work count and the subset where
// they were last author.
func trialCounts(c *domain.AuthorCandidate) (trialWorks, trialLastAuthor int) {
	for _, w := range c.Works {
		if !w.IsTrial {
			continue
		}
		trialWorks++
		if w.Position == domain.PositionLast {
			trialLastAuthor++
		}
	}
	return trialWorks, trialLastAuthor
}
