// Package entity defines the span data model shared by every pipeline stage.
//
// A Span is a labeled, scored character range [Start,End) into the source
// text. Past validation a span is treated as an immutable value: stages that
// change spans (merging, cleaning) construct new ones rather than mutating
// their inputs in place.
package entity

import "sort"

// Span is a labeled character range detected in the source text.
// The invariant 0 <= Start < End <= len(source) holds for every span the
// validator emits, and Text equals the source substring at [Start,End)
// after whitespace normalization.
type Span struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Length returns the character length of the span.
func (s Span) Length() int { return s.End - s.Start }

// Overlaps reports whether the two spans' intervals intersect.
func (s Span) Overlaps(o Span) bool {
	return !(s.End <= o.Start || o.End <= s.Start)
}

// Key identifies a distinct entity for consistency tracking: two spans with
// the same label and surface text are the same entity.
type Key struct {
	Label string
	Text  string
}

// KeyOf returns the consistency key of a span.
func KeyOf(s Span) Key { return Key{Label: s.Label, Text: s.Text} }

// SortByStart orders spans by ascending start position, in place.
// Equal starts keep their input order.
func SortByStart(spans []Span) {
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
}

// RedactionDetail records one applied redaction, sorted by Start in results.
type RedactionDetail struct {
	Label       string  `json:"label"`
	Original    string  `json:"original"`
	Placeholder string  `json:"placeholder"`
	Start       int     `json:"start"`
	End         int     `json:"end"`
	Score       float64 `json:"score"`
	RedactionID string  `json:"redaction_id"`
}

// ReplacementDetail records one applied replacement, tagged with the
// strategy that produced the value.
type ReplacementDetail struct {
	Label        string  `json:"label"`
	Original     string  `json:"original"`
	Replacement  string  `json:"replacement"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
	Score        float64 `json:"score"`
	StrategyUsed string  `json:"strategy_used"`
}
