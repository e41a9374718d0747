// Package replace substitutes detected entities with realistic synthetic
// values. Each label is served by an ordered chain of strategies; the first
// strategy that produces a usable value (non-empty and different from the
// original) wins. The terminal fallback strategy never fails, so every span
// is always replaced.
package replace

import "strings"

// Strategy produces a replacement value for an entity.
type Strategy interface {
	// Name tags replacement details with the strategy that produced them.
	Name() string
	// CanHandle reports whether the strategy applies to the label.
	CanHandle(label string) bool
	// Generate returns a replacement for the original value.
	Generate(label, original string) (string, error)
}

// chainFor returns the strategy order for a label. Labels without a
// dedicated chain get the generic synthetic-then-fallback order.
func chainFor(label string, s *strategySet) []Strategy {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "location":
		return []Strategy{s.country, s.synthetic, s.fallback}
	case "date", "birthday", "date_of_birth", "dob":
		return []Strategy{s.date, s.synthetic, s.fallback}
	case "nationality", "country":
		return []Strategy{s.country, s.fallback}
	default:
		return []Strategy{s.synthetic, s.fallback}
	}
}

// strategySet holds one instance of every built-in strategy.
type strategySet struct {
	synthetic *SyntheticStrategy
	country   *CountryStrategy
	date      *DateStrategy
	fallback  *FallbackStrategy
}

// byName resolves a configured strategy name, or nil if unknown.
func (s *strategySet) byName(name string) Strategy {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "synthetic":
		return s.synthetic
	case "country":
		return s.country
	case "date":
		return s.date
	case "default", "fallback":
		return s.fallback
	default:
		return nil
	}
}
