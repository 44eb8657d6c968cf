package domain

// ProfileFetchMode selects how many candidates receive authoritative
// profile enrichment before ranking.
type ProfileFetchMode string

const (
	// ProfileFetchFast enriches only the top candidates by preliminary
	// citation count.
	ProfileFetchFast ProfileFetchMode = "fast"

	// ProfileFetchThorough enriches every candidate.
	ProfileFetchThorough ProfileFetchMode = "thorough"
)

// YearCount is an author's publication and citation activity for one year.
type YearCount struct {
	Year      int
	Works     int
	Citations int
}

// AuthorProfile is the authoritative author record fetched from the works
// index during enrichment. Fields are career-wide, not topic-scoped.
type AuthorProfile struct {
	AuthorID string
	Name     string
	ORCID    string

	WorksCount   int
	CitedByCount int

	// CountsByYear holds recent yearly activity, most recent first.
	CountsByYear []YearCount

	// Institutions lists last known affiliations.
	Institutions []Institution
}

// WorksInLastYears sums the author's works published within the last n
// calendar years relative to currentYear, inclusive of the current year.
func (p *AuthorProfile) WorksInLastYears(currentYear, n int) int {
	total := 0
	for _, yc := range p.CountsByYear {
		if yc.Year > currentYear-n {
			total += yc.Works
		}
	}
	return total
}
