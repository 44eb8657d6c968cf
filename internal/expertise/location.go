package expertise

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/helixir/expert-finder-service/internal/domain"
)

// Location bonus tiers. City matches outrank state matches, which outrank
// country matches. The bonus is used for tie-breaking only and is never
// folded into the final score.
const (
	locationBonusCity    = 1.0
	locationBonusState   = 0.66
	locationBonusCountry = 0.33
)

// countryCodes maps lowercase country names and common aliases to ISO 3166-1
// alpha-2 codes. This is a lookup table, not geocoding: ambiguous free-text
// locations resolve to whatever name component appears here.
var countryCodes = map[string]string{
	"united states":  "US",
	"usa":            "US",
	"us":             "US",
	"america":        "US",
	"united kingdom": "GB",
	"uk":             "GB",
	"england":        "GB",
	"scotland":       "GB",
	"wales":          "GB",
	"canada":         "CA",
	"australia":      "AU",
	"germany":        "DE",
	"france":         "FR",
	"italy":          "IT",
	"spain":          "ES",
	"netherlands":    "NL",
	"belgium":        "BE",
	"switzerland":    "CH",
	"austria":        "AT",
	"sweden":         "SE",
	"norway":         "NO",
	"denmark":        "DK",
	"finland":        "FI",
	"ireland":        "IE",
	"portugal":       "PT",
	"greece":         "GR",
	"poland":         "PL",
	"czech republic": "CZ",
	"czechia":        "CZ",
	"japan":          "JP",
	"china":          "CN",
	"south korea":    "KR",
	"korea":          "KR",
	"india":          "IN",
	"singapore":      "SG",
	"taiwan":         "TW",
	"hong kong":      "HK",
	"israel":         "IL",
	"turkey":         "TR",
	"brazil":         "BR",
	"argentina":      "AR",
	"chile":          "CL",
	"mexico":         "MX",
	"south africa":   "ZA",
	"egypt":          "EG",
	"nigeria":        "NG",
	"kenya":          "KE",
	"new zealand":    "NZ",
	"russia":         "RU",
	"ukraine":        "UA",
	"iran":           "IR",
	"saudi arabia":   "SA",
	"uae":            "AE",
	"qatar":          "QA",
	"thailand":       "TH",
	"vietnam":        "VN",
	"indonesia":      "ID",
	"malaysia":       "MY",
	"philippines":    "PH",
	"pakistan":       "PK",
	"bangladesh":     "BD",
	"colombia":       "CO",
	"peru":           "PE",
	"hungary":        "HU",
	"romania":        "RO",
	"croatia":        "HR",
	"serbia":         "RS",
	"slovenia":       "SI",
	"slovakia":       "SK",
	"estonia":        "EE",
	"latvia":         "LV",
	"lithuania":      "LT",
	"iceland":        "IS",
	"luxembourg":     "LU",
}

// knownCountryCodes is the set of ISO codes the table above can produce,
// used to validate bare two-letter tokens.
var knownCountryCodes = func() map[string]bool {
	set := make(map[string]bool, len(countryCodes))
	for _, code := range countryCodes {
		set[code] = true
	}
	return set
}()

// foldTransformer strips combining marks so that "Müller" and "Muller"
// compare equal.
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldName lowercases a string and removes diacritics for comparison.
func foldName(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Location is a parsed free-text location constraint. A zero Location means
// the search is global.
type Location struct {
	// Raw is the original free-text input.
	Raw string

	// City is the normalized city component, if one was given.
	City string

	// State is the normalized state or region component, if one was given.
	State string

	// CountryCode is the resolved ISO 3166-1 alpha-2 code, if any component
	// named a known country.
	CountryCode string
}

// IsZero reports whether no location constraint was given.
func (l Location) IsZero() bool {
	return l.City == "" && l.State == "" && l.CountryCode == ""
}

// ParseLocation splits a free-text location such as "Toronto, Ontario,
// Canada" into city, state, and country components. Comma-separated parts
// are matched right to left: the rightmost part naming a known country sets
// the country code, the leftmost non-country part becomes the city, and any
// middle part becomes the state.
func ParseLocation(raw string) Location {
	loc := Location{Raw: raw}

	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return loc
	}

	// A bare trailing two-letter token is accepted as a country code only
	// when it is one the table can produce. US state abbreviations collide
	// with ISO codes ("Boston, MA" is not Morocco), so unknown tokens stay
	// in place and parse as states.
	for i := len(parts) - 1; i >= 0; i-- {
		key := foldName(parts[i])
		if code, ok := countryCodes[key]; ok {
			loc.CountryCode = code
			parts = append(parts[:i], parts[i+1:]...)
			break
		}
		if len(key) == 2 && i == len(parts)-1 && knownCountryCodes[strings.ToUpper(key)] {
			loc.CountryCode = strings.ToUpper(key)
			parts = parts[:i]
			break
		}
	}

	switch len(parts) {
	case 0:
	case 1:
		loc.City = foldName(parts[0])
	default:
		loc.City = foldName(parts[0])
		loc.State = foldName(parts[1])
	}

	return loc
}

// MatchCandidate returns the location bonus for a candidate, or 0 when
// nothing matches. Matching is tiered: a city match (normalized substring
// of any institution name) scores highest, a state match requires the
// country to match too, and a bare country-code match is the weakest tier.
// A city match implies the country tier is also satisfied, so filtering on
// the bonus is monotonic in specificity.
func (l Location) MatchCandidate(c *domain.AuthorCandidate) float64 {
	if l.IsZero() {
		return 0
	}

	countryMatch := l.CountryCode == ""
	if l.CountryCode != "" {
		_, countryMatch = c.CountryCodes[l.CountryCode]
	}

	cityMatch := false
	stateMatch := false
	for name := range c.Institutions {
		folded := foldName(name)
		if l.City != "" && strings.Contains(folded, l.City) {
			cityMatch = true
		}
		if l.State != "" && strings.Contains(folded, l.State) {
			stateMatch = true
		}
	}

	switch {
	case cityMatch && countryMatch:
		return locationBonusCity
	case stateMatch && countryMatch && l.CountryCode != "":
		return locationBonusState
	case countryMatch && l.CountryCode != "":
		return locationBonusCountry
	default:
		return 0
	}
}
