// Package merge combines adjacent same-label spans into single spans with
// weighted-average scores. The labeler often splits one entity over token
// boundaries ("John" + "Smith"); merging repairs that after validation.
package merge

import (
	"strings"

	"entity-cloak/internal/entity"
	"entity-cloak/internal/logger"
)

// DefaultMaxGap is the character gap within which two same-label spans are
// still considered one entity.
const DefaultMaxGap = 1

// Merger merges adjacent spans that share a label.
type Merger struct {
	maxGap int
	log    *logger.Logger
}

// New returns a merger allowing up to maxGap characters between spans.
// A negative maxGap falls back to DefaultMaxGap.
func New(maxGap int, log *logger.Logger) *Merger {
	if maxGap < 0 {
		maxGap = DefaultMaxGap
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Merger{maxGap: maxGap, log: log}
}

// CanMerge reports whether b can merge into a, assuming b starts at or after
// a: same label, and b starts at a's end or within maxGap characters after.
func (m *Merger) CanMerge(a, b entity.Span) bool {
	return a.Label == b.Label && b.Start <= a.End+m.maxGap
}

// Merge walks spans in start order accumulating a current candidate. A span
// merges into the candidate when CanMerge holds; the combined text is
// recomputed from the source substring (trimmed) and the score becomes the
// running count-weighted average. Input spans are not mutated.
func (m *Merger) Merge(spans []entity.Span, source string) []entity.Span {
	if len(spans) == 0 {
		return nil
	}

	sorted := make([]entity.Span, len(spans))
	copy(sorted, spans)
	entity.SortByStart(sorted)

	merged := make([]entity.Span, 0, len(sorted))
	current := sorted[0]
	count := 1

	for _, next := range sorted[1:] {
		if m.CanMerge(current, next) {
			// A span nested inside the candidate must not shrink it;
			// only extend the right edge.
			if next.End > current.End {
				current.End = next.End
			}
			current.Text = strings.TrimSpace(source[current.Start:current.End])
			current.Score = (current.Score*float64(count) + next.Score) / float64(count+1)
			count++
			m.log.Debugf("merged", "%q (count=%d)", current.Text, count)
			continue
		}
		merged = append(merged, current)
		current = next
		count = 1
	}
	merged = append(merged, current)

	if len(merged) < len(spans) {
		m.log.Infof("merge", "merging: %d -> %d spans", len(spans), len(merged))
	}
	return merged
}
