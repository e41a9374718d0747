package replace

import (
	"fmt"
	"math/rand"
	"strings"
)

// countries is the pool surrogate countries are drawn from, and doubles as
// the detection list for country-valued locations.
var countries = []string{
	"France", "Germany", "Spain", "Italy", "Portugal", "Netherlands",
	"Belgium", "Switzerland", "Austria", "Poland", "Sweden", "Norway",
	"Denmark", "Finland", "Ireland", "Greece", "United Kingdom",
	"United States", "Canada", "Mexico", "Brazil", "Argentina", "Chile",
	"Japan", "China", "India", "South Korea", "Australia", "New Zealand",
	"Egypt", "Morocco", "South Africa", "Kenya", "Nigeria", "Turkey",
}

// demonyms maps countries to their nationality adjectives. Countries not
// listed get a naive country+"n" form.
var demonyms = map[string]string{
	"France":         "French",
	"Germany":        "German",
	"Spain":          "Spanish",
	"Italy":          "Italian",
	"Portugal":       "Portuguese",
	"Netherlands":    "Dutch",
	"Belgium":        "Belgian",
	"Switzerland":    "Swiss",
	"Austria":        "Austrian",
	"Poland":         "Polish",
	"Sweden":         "Swedish",
	"Norway":         "Norwegian",
	"Denmark":        "Danish",
	"Finland":        "Finnish",
	"Ireland":        "Irish",
	"Greece":         "Greek",
	"United Kingdom": "British",
	"United States":  "American",
	"Canada":         "Canadian",
	"Mexico":         "Mexican",
	"Brazil":         "Brazilian",
	"Argentina":      "Argentinian",
	"Chile":          "Chilean",
	"Japan":          "Japanese",
	"China":          "Chinese",
	"India":          "Indian",
	"South Korea":    "South Korean",
	"New Zealand":    "New Zealander",
	"Egypt":          "Egyptian",
	"Morocco":        "Moroccan",
	"South Africa":   "South African",
	"Kenya":          "Kenyan",
	"Nigeria":        "Nigerian",
	"Turkey":         "Turkish",
}

// CountryStrategy replaces country names and nationalities with different
// ones from a fixed pool.
type CountryStrategy struct {
	rng *rand.Rand
}

// NewCountry builds the strategy around a random source.
func NewCountry(rng *rand.Rand) *CountryStrategy {
	return &CountryStrategy{rng: rng}
}

func (s *CountryStrategy) Name() string { return "country" }

// CanHandle accepts geographic and nationality labels.
func (s *CountryStrategy) CanHandle(label string) bool {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "country", "nationality", "location", "nation", "citizenship":
		return true
	default:
		return false
	}
}

// Generate picks a country different from the original. Nationality labels
// get the demonym form instead of the country name.
func (s *CountryStrategy) Generate(label, original string) (string, error) {
	lower := strings.ToLower(strings.TrimSpace(label))

	if lower == "nationality" || lower == "citizenship" {
		country := s.pickOther(countryForDemonym(original))
		if d, ok := demonyms[country]; ok {
			return d, nil
		}
		return country + "n", nil
	}

	// For locations only swap values that actually look like countries;
	// cities and street names belong to the synthetic strategy.
	if lower == "location" && !isKnownCountry(original) {
		return "", fmt.Errorf("%q is not a recognized country", original)
	}
	return s.pickOther(original), nil
}

// pickOther draws a country that is not the exclusion.
func (s *CountryStrategy) pickOther(exclude string) string {
	for {
		c := countries[s.rng.Intn(len(countries))]
		if !strings.EqualFold(c, exclude) {
			return c
		}
	}
}

func isKnownCountry(v string) bool {
	for _, c := range countries {
		if strings.EqualFold(c, strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

// countryForDemonym reverses the demonym map so "French" excludes France
// from the draw.
func countryForDemonym(d string) string {
	d = strings.TrimSpace(d)
	for country, dem := range demonyms {
		if strings.EqualFold(dem, d) {
			return country
		}
	}
	return d
}
