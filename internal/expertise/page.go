package expertise

import (
	"fmt"
	"sort"

	"github.com/helixir/expert-finder-service/internal/domain"
)

// maxRecentWorks caps how many recent publications a page entry carries.
const maxRecentWorks = 5

// SlicePage cuts one page out of a cached ranked list and shapes the public
// expert records. Every entry gets the deterministic template biography;
// callers may overwrite it with a generated one. Ranks are 1-based over
// the full list, so page 2 continues where page 1 left off.
func SlicePage(ranked []domain.RankedExpert, page, pageSize int) []domain.Expert {
	start := (page - 1) * pageSize
	if start >= len(ranked) {
		return []domain.Expert{}
	}
	end := min(start+pageSize, len(ranked))

	experts := make([]domain.Expert, 0, end-start)
	for i := start; i < end; i++ {
		experts = append(experts, buildExpert(&ranked[i], i+1))
	}
	return experts
}

// buildExpert converts one ranked entry into the public response shape.
func buildExpert(re *domain.RankedExpert, rank int) domain.Expert {
	trialWorks, trialLastAuthor := trialCounts(&re.AuthorCandidate)

	countries := make([]string, 0, len(re.CountryCodes))
	for code := range re.CountryCodes {
		countries = append(countries, code)
	}
	sort.Strings(countries)

	orcidURL := ""
	if re.ORCID != "" {
		orcidURL = "https://orcid.org/" + re.ORCID
	}

	expert := domain.Expert{
		AuthorID:     re.AuthorID,
		Name:         re.Name,
		ORCID:        re.ORCID,
		OrcidURL:     orcidURL,
		Institutions: re.InstitutionNames(),
		Countries:    countries,
		Rank:         rank,
		Score:        re.Scores.Final,
		Scores:       re.Scores,
		Confidence:   domain.ConfidenceTier(re.TotalCitations, len(re.Works), re.RecentWorks2y),
		Metrics: domain.ExpertMetrics{
			TopicWorks:      len(re.Works),
			TopicCitations:  re.TotalCitations,
			LifetimeWorks:   re.RealWorksCount,
			RecentWorks:     re.RecentWorks2y,
			FirstAuthor:     re.FirstAuthorCount,
			LastAuthor:      re.LastAuthorCount,
			Corresponding:   re.CorrespondingAuthorCount,
			FieldRelevance:  re.FieldRelevance,
			TrialWorks:      trialWorks,
			TrialLastAuthor: trialLastAuthor,
		},
		Verification: domain.ExpertVerification{
			Verified:            true,
			Method:              string(re.Method),
			OverlappingDOICount: re.OverlappingDOICount,
			NameMatchScore:      re.NameMatchScore,
		},
		RecentWorks: recentWorks(re.Works),
		Biography:   TemplateBiography(re),
	}

	return expert
}

// recentWorks returns up to maxRecentWorks of the candidate's publications,
// newest first, citations breaking year ties.
func recentWorks(works []domain.AuthorWork) []domain.RecentWork {
	sorted := make([]domain.AuthorWork, len(works))
	copy(sorted, works)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year > sorted[j].Year
		}
		return sorted[i].Citations > sorted[j].Citations
	})

	n := min(maxRecentWorks, len(sorted))
	recent := make([]domain.RecentWork, 0, n)
	for _, w := range sorted[:n] {
		recent = append(recent, domain.RecentWork{
			Title:     w.Title,
			Year:      w.Year,
			Citations: w.Citations,
			DOI:       w.DOI,
		})
	}
	return recent
}

// TemplateBiography produces the deterministic fallback biography used
// when generated biographies are disabled or fail.
func TemplateBiography(re *domain.RankedExpert) string {
	institutions := re.InstitutionNames()
	if len(institutions) > 0 {
		return fmt.Sprintf("Researcher at %s with %d publications and %d citations.",
			institutions[0], re.RealWorksCount, re.RealCitationCount)
	}
	return fmt.Sprintf("Researcher with %d publications and %d citations.",
		re.RealWorksCount, re.RealCitationCount)
}
