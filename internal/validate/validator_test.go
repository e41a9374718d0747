package validate

import (
	"testing"

	"entity-cloak/internal/config"
	"entity-cloak/internal/entity"
	"entity-cloak/internal/logger"
)

func newValidator() *Validator { return New(0.3, true, logger.Nop()) }

func TestValidateConfidenceFloor(t *testing.T) {
	source := "John met Mary"
	spans := []entity.Span{
		{Label: "person", Text: "John", Start: 0, End: 4, Score: 0.9},
		{Label: "person", Text: "Mary", Start: 9, End: 13, Score: 0.1},
	}
	v := newValidator()
	got := v.Validate(spans, source, -1)
	if len(got) != 1 || got[0].Text != "John" {
		t.Fatalf("got %+v", got)
	}
	s := v.LastStats()
	if s.Total != 2 || s.ConfidenceFiltered != 1 || s.Valid != 1 {
		t.Errorf("stats: %+v", s)
	}
}

func TestValidateConfidenceOverride(t *testing.T) {
	source := "John"
	spans := []entity.Span{{Label: "person", Text: "John", Start: 0, End: 4, Score: 0.5}}
	v := newValidator()
	if got := v.Validate(spans, source, 0.8); len(got) != 0 {
		t.Errorf("override 0.8 should drop the span, got %+v", got)
	}
	if got := v.Validate(spans, source, 0.4); len(got) != 1 {
		t.Errorf("override 0.4 should keep the span, got %+v", got)
	}
}

func TestValidatePositionChecks(t *testing.T) {
	source := "short text"
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	longSource := string(long)

	cases := []struct {
		name   string
		source string
		span   entity.Span
	}{
		{"negative start", source, entity.Span{Label: "x", Text: "s", Start: -1, End: 3, Score: 1}},
		{"end past length", source, entity.Span{Label: "x", Text: "s", Start: 0, End: 99, Score: 1}},
		{"start at length", source, entity.Span{Label: "x", Text: "s", Start: 10, End: 11, Score: 1}},
		{"start not before end", source, entity.Span{Label: "x", Text: "s", Start: 4, End: 4, Score: 1}},
		{"over max length", longSource, entity.Span{Label: "x", Text: longSource[:250], Start: 0, End: 250, Score: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := newValidator()
			if got := v.Validate([]entity.Span{c.span}, c.source, -1); len(got) != 0 {
				t.Errorf("span should be dropped: %+v", got)
			}
			if v.LastStats().PositionInvalid != 1 {
				t.Errorf("stats: %+v", v.LastStats())
			}
		})
	}
}

func TestValidateTextConsistency(t *testing.T) {
	source := "Dr.  John   Smith works in Paris"
	cases := []struct {
		name string
		span entity.Span
		keep bool
	}{
		{"exact", entity.Span{Label: "person", Text: "Dr.  John   Smith", Start: 0, End: 17, Score: 1}, true},
		{"whitespace drift", entity.Span{Label: "person", Text: "Dr. John Smith", Start: 0, End: 17, Score: 1}, true},
		{"case drift", entity.Span{Label: "person", Text: "dr. john smith", Start: 0, End: 17, Score: 1}, true},
		{"substring drift", entity.Span{Label: "person", Text: "John", Start: 0, End: 17, Score: 1}, true},
		{"unrelated text", entity.Span{Label: "person", Text: "Alice Jones", Start: 0, End: 17, Score: 1}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v := newValidator()
			got := v.Validate([]entity.Span{c.span}, source, -1)
			if c.keep && len(got) != 1 {
				t.Fatalf("span should survive, stats %+v", v.LastStats())
			}
			if !c.keep {
				if len(got) != 0 {
					t.Fatalf("span should be dropped: %+v", got)
				}
				return
			}
			// Cleaning recomputes text from the source, authoritative.
			if got[0].Text != "Dr.  John   Smith" {
				t.Errorf("cleaned text: got %q", got[0].Text)
			}
		})
	}
}

func TestValidateCleansLabel(t *testing.T) {
	source := "Paris"
	spans := []entity.Span{{Label: "  LOCATION ", Text: "Paris", Start: 0, End: 5, Score: 0.9}}
	got := newValidator().Validate(spans, source, -1)
	if len(got) != 1 || got[0].Label != "location" {
		t.Errorf("got %+v", got)
	}
}

func TestValidateNonStrictSkipsPositionAndText(t *testing.T) {
	v := New(0.3, false, logger.Nop())
	spans := []entity.Span{{Label: "x", Text: "whatever", Start: 0, End: 999, Score: 0.9}}
	if got := v.Validate(spans, "tiny", -1); len(got) != 1 {
		t.Errorf("non-strict should keep the span, got %+v", got)
	}
}

func overlapFixture() []entity.Span {
	return []entity.Span{
		{Label: "person", Text: "John Smith", Start: 0, End: 10, Score: 0.8},
		{Label: "person", Text: "Smith", Start: 5, End: 10, Score: 0.9},
		{Label: "location", Text: "Paris", Start: 20, End: 25, Score: 0.7},
	}
}

func assertNoOverlaps(t *testing.T, spans []entity.Span) {
	t.Helper()
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].Overlaps(spans[j]) {
				t.Errorf("overlap survives: %+v vs %+v", spans[i], spans[j])
			}
		}
	}
}

func TestResolveOverlapsHighestConfidence(t *testing.T) {
	got := newValidator().ResolveOverlaps(overlapFixture(), config.OverlapHighestConfidence)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Text != "Smith" {
		t.Errorf("kept %q, want higher-scoring span", got[0].Text)
	}
	assertNoOverlaps(t, got)
}

func TestResolveOverlapsLongest(t *testing.T) {
	got := newValidator().ResolveOverlaps(overlapFixture(), config.OverlapLongest)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Text != "John Smith" {
		t.Errorf("kept %q, want longer span", got[0].Text)
	}
	assertNoOverlaps(t, got)
}

func TestResolveOverlapsFirstKeepsInputOrder(t *testing.T) {
	got := newValidator().ResolveOverlaps(overlapFixture(), config.OverlapFirst)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[0].Text != "John Smith" {
		t.Errorf("kept %q, want earlier-encountered span", got[0].Text)
	}
	assertNoOverlaps(t, got)
}

func TestResolveOverlapsTieDropsSecond(t *testing.T) {
	spans := []entity.Span{
		{Label: "x", Text: "abcde", Start: 0, End: 5, Score: 0.8},
		{Label: "x", Text: "cdefg", Start: 2, End: 7, Score: 0.8},
	}
	for _, strategy := range []string{config.OverlapHighestConfidence, config.OverlapLongest} {
		got := newValidator().ResolveOverlaps(spans, strategy)
		if len(got) != 1 || got[0].Start != 0 {
			t.Errorf("%s tie: got %+v, want first span kept", strategy, got)
		}
	}
}

func TestResolveOverlapsChainRespectsRemovedSet(t *testing.T) {
	// b overlaps both a and c; once b is removed, the (b,c) pair must be
	// skipped, leaving a and c untouched.
	spans := []entity.Span{
		{Label: "x", Text: "aaaa", Start: 0, End: 4, Score: 0.9},
		{Label: "x", Text: "bbbb", Start: 2, End: 6, Score: 0.1},
		{Label: "x", Text: "cccc", Start: 5, End: 9, Score: 0.5},
	}
	got := newValidator().ResolveOverlaps(spans, config.OverlapHighestConfidence)
	if len(got) != 2 {
		t.Fatalf("got %+v", got)
	}
	assertNoOverlaps(t, got)
}

func TestResolveOverlapsNoOverlapsReturnsAll(t *testing.T) {
	spans := []entity.Span{
		{Label: "x", Text: "a", Start: 0, End: 1, Score: 1},
		{Label: "x", Text: "b", Start: 5, End: 6, Score: 1},
	}
	got := newValidator().ResolveOverlaps(spans, config.OverlapHighestConfidence)
	if len(got) != 2 {
		t.Errorf("got %+v", got)
	}
}
