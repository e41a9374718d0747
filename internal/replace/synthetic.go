package replace

import (
	"fmt"
	"strings"

	"entity-cloak/internal/generate"
)

// syntheticRetries bounds re-rolls when the generated value collides with
// the original.
const syntheticRetries = 3

// SyntheticStrategy produces fake-but-realistic values from a generator:
// names for people, addresses for addresses, and so on.
type SyntheticStrategy struct {
	gen generate.Generator
}

// NewSynthetic wraps a generator as a replacement strategy.
func NewSynthetic(gen generate.Generator) *SyntheticStrategy {
	return &SyntheticStrategy{gen: gen}
}

func (s *SyntheticStrategy) Name() string { return "synthetic" }

// CanHandle accepts labels with a known generator category. Labels it does
// not recognize (account numbers, custom tags) belong to the fallback
// scrambler, not to a random person name.
func (s *SyntheticStrategy) CanHandle(label string) bool {
	_, ok := categoryFor(label)
	return ok
}

// Generate picks the generator category for the label and re-rolls a few
// times if the value happens to match the original.
func (s *SyntheticStrategy) Generate(label, original string) (string, error) {
	category, ok := categoryFor(label)
	if !ok {
		return "", fmt.Errorf("no synthetic category for label %q", label)
	}
	value := generate.ForCategory(s.gen, category)
	for i := 0; i < syntheticRetries && strings.EqualFold(value, original); i++ {
		value = generate.ForCategory(s.gen, category)
	}
	return value, nil
}

// categoryFor maps an entity label onto a generator category.
func categoryFor(label string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "person", "name", "per":
		return "name", true
	case "first_name", "given_name":
		return "first_name", true
	case "last_name", "surname", "family_name":
		return "last_name", true
	case "email", "email_address":
		return "email", true
	case "phone", "phone_number", "telephone":
		return "phone", true
	case "address", "street_address":
		return "address", true
	case "organization", "organisation", "company", "org":
		return "company", true
	case "city":
		return "city", true
	case "state", "province":
		return "state", true
	case "job", "job_title", "profession", "occupation":
		return "job", true
	case "location", "place":
		return "city", true
	case "age":
		return "age", true
	default:
		return "", false
	}
}
