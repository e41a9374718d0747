package extractor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"entity-cloak/internal/entity"
	"entity-cloak/internal/labeler"
	"entity-cloak/internal/logger"
)

// termFinder is a fake labeler that reports every occurrence of its terms in
// the text it is given, each with a fixed score, honoring the threshold.
type termFinder struct {
	terms map[string]float64 // term text -> score
	label string
	calls atomic.Int64
	fail  func(text string) error
}

func (f *termFinder) Label(_ context.Context, text string, _ []string, threshold float64) ([]entity.Span, error) {
	f.calls.Add(1)
	if f.fail != nil {
		if err := f.fail(text); err != nil {
			return nil, err
		}
	}
	var spans []entity.Span
	for term, score := range f.terms {
		if score < threshold {
			continue
		}
		for from := 0; ; {
			i := strings.Index(text[from:], term)
			if i < 0 {
				break
			}
			start := from + i
			spans = append(spans, entity.Span{
				Label: f.label, Text: term, Start: start, End: start + len(term), Score: score,
			})
			from = start + len(term)
		}
	}
	entity.SortByStart(spans)
	return spans, nil
}

func TestMultiPassRecoversWeakMatchesAfterMasking(t *testing.T) {
	text := "John met Mary in town"
	f := &termFinder{label: "person", terms: map[string]float64{"John": 0.9, "Mary": 0.4}}
	m := NewMultiPass(f, logger.Nop())

	spans, err := m.Extract(context.Background(), text, []string{"Person"}, 3)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2: %+v", len(spans), spans)
	}
	// Sorted by start, offsets index the original text.
	if spans[0].Text != "John" || text[spans[0].Start:spans[0].End] != "John" {
		t.Errorf("span 0: %+v", spans[0])
	}
	if spans[1].Text != "Mary" || text[spans[1].Start:spans[1].End] != "Mary" {
		t.Errorf("span 1: %+v", spans[1])
	}
}

func TestMultiPassNeverReportsSameRangeTwice(t *testing.T) {
	text := "Alice Alice Alice"
	f := &termFinder{label: "person", terms: map[string]float64{"Alice": 0.9}}
	m := NewMultiPass(f, logger.Nop())

	spans, err := m.Extract(context.Background(), text, []string{"person"}, 10)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	seen := map[[2]int]bool{}
	for _, s := range spans {
		key := [2]int{s.Start, s.End}
		if seen[key] {
			t.Errorf("duplicate range %v", key)
		}
		seen[key] = true
	}
	if len(spans) != 3 {
		t.Errorf("got %d spans, want 3", len(spans))
	}
}

func TestMultiPassStopsEarlyWhenNothingNew(t *testing.T) {
	// All occurrences are masked after pass 1, so pass 2 finds nothing new
	// and the loop must stop well before maxPasses.
	f := &termFinder{label: "person", terms: map[string]float64{"Bob": 0.9}}
	m := NewMultiPass(f, logger.Nop())

	if _, err := m.Extract(context.Background(), "Bob was here", []string{"person"}, 50); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := f.calls.Load(); got > 2 {
		t.Errorf("labeler called %d times, want at most 2", got)
	}
}

func TestMultiPassRespectsMaxPasses(t *testing.T) {
	// A labeler that invents a new range every call would loop forever
	// without the pass cap.
	var n atomic.Int64
	endless := labeler.Func(func(_ context.Context, text string, _ []string, _ float64) ([]entity.Span, error) {
		i := int(n.Add(1))
		return []entity.Span{{Label: "x", Text: text[i : i+1], Start: i, End: i + 1, Score: 0.9}}, nil
	})
	m := NewMultiPass(endless, logger.Nop())
	spans, err := m.Extract(context.Background(), "abcdefghijklmnop", []string{"x"}, 3)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(spans) != 3 {
		t.Errorf("got %d spans, want 3 (one per pass)", len(spans))
	}
}

func TestMultiPassEmptyInput(t *testing.T) {
	f := &termFinder{label: "person", terms: map[string]float64{"x": 0.9}}
	m := NewMultiPass(f, logger.Nop())
	for _, text := range []string{"", "   \n\t "} {
		spans, err := m.Extract(context.Background(), text, []string{"person"}, 2)
		if err != nil || spans != nil {
			t.Errorf("blank input %q: got %v, %v", text, spans, err)
		}
	}
	if f.calls.Load() != 0 {
		t.Error("labeler should not be called for blank input")
	}
}

func TestMultiPassFirstPassErrorSurfaces(t *testing.T) {
	boom := errors.New("model unavailable")
	f := &termFinder{label: "person", terms: map[string]float64{"John": 0.9},
		fail: func(string) error { return boom }}
	m := NewMultiPass(f, logger.Nop())
	if _, err := m.Extract(context.Background(), "John", []string{"person"}, 2); !errors.Is(err, boom) {
		t.Errorf("got err %v, want %v", err, boom)
	}
}

func TestMultiPassLaterPassErrorAbsorbed(t *testing.T) {
	var calls atomic.Int64
	flaky := labeler.Func(func(_ context.Context, text string, _ []string, _ float64) ([]entity.Span, error) {
		if calls.Add(1) > 1 {
			return nil, errors.New("transient")
		}
		return []entity.Span{{Label: "person", Text: "John", Start: 0, End: 4, Score: 0.9}}, nil
	})
	m := NewMultiPass(flaky, logger.Nop())
	spans, err := m.Extract(context.Background(), "John met Mary", []string{"person"}, 3)
	if err != nil {
		t.Fatalf("later-pass failure should be absorbed, got %v", err)
	}
	if len(spans) != 1 {
		t.Errorf("got %d spans, want the pass-1 result", len(spans))
	}
}
