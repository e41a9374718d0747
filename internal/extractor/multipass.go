// Package extractor implements the two extraction strategies over a Labeler:
// a single-threaded iterative masking strategy (MultiPass) and a fork-join
// parallel strategy over word-aligned chunks (Dispatcher), plus a bounded
// result cache shared by callers.
package extractor

import (
	"context"
	"strings"

	"entity-cloak/internal/entity"
	"entity-cloak/internal/labeler"
	"entity-cloak/internal/logger"
)

// Pass-dependent confidence thresholds. The first pass asks for confident,
// precise spans; later passes lower the bar to recover weaker matches in the
// text the first pass missed.
const (
	firstPassThreshold = 0.5
	laterPassThreshold = 0.30
)

// DefaultMaxPasses bounds the masking loop when the caller passes a
// non-positive value.
const DefaultMaxPasses = 2

// MultiPass runs the iterative masking extraction strategy.
type MultiPass struct {
	labeler labeler.Labeler
	log     *logger.Logger
}

// NewMultiPass returns a multi-pass extractor over the given labeler.
func NewMultiPass(l labeler.Labeler, log *logger.Logger) *MultiPass {
	if log == nil {
		log = logger.Nop()
	}
	return &MultiPass{labeler: l, log: log}
}

// Extract runs up to maxPasses labeling passes over text. After each pass the
// newly found ranges are overwritten with spaces in a working buffer of
// identical length, so the labeler cannot re-detect them while every
// remaining character keeps its original offset. A span whose (start,end)
// was already reported in an earlier pass is discarded; a pass that yields
// no new unique spans ends the loop early.
//
// An error from the first pass is returned as-is. A failure in a later pass
// is absorbed: the spans collected so far are still useful.
func (m *MultiPass) Extract(ctx context.Context, text string, labels []string, maxPasses int) ([]entity.Span, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}
	labels = lowerLabels(labels)

	work := []byte(text)
	seen := make(map[[2]int]bool)
	var all []entity.Span

	for pass := 0; pass < maxPasses; pass++ {
		threshold := laterPassThreshold
		if pass == 0 {
			threshold = firstPassThreshold
		}

		found, err := m.labeler.Label(ctx, string(work), labels, threshold)
		if err != nil {
			if pass == 0 {
				return nil, err
			}
			m.log.Warnf("pass_failed", "pass %d: %v", pass+1, err)
			break
		}
		m.log.Debugf("pass_done", "pass %d: %d candidates at threshold %.2f", pass+1, len(found), threshold)

		var fresh []entity.Span
		for _, s := range found {
			key := [2]int{s.Start, s.End}
			if seen[key] {
				continue
			}
			seen[key] = true
			fresh = append(fresh, s)
		}
		if len(fresh) == 0 {
			m.log.Debugf("early_stop", "pass %d: no new unique spans", pass+1)
			break
		}

		all = append(all, fresh...)
		for _, s := range fresh {
			mask(work, s.Start, s.End)
		}
	}

	entity.SortByStart(all)
	m.log.Infof("extract", "multi-pass found %d spans", len(all))
	return all, nil
}

// mask blanks the bytes of work in [start,end), clamped to the buffer.
func mask(work []byte, start, end int) {
	if start < 0 {
		start = 0
	}
	if end > len(work) {
		end = len(work)
	}
	for i := start; i < end; i++ {
		work[i] = ' '
	}
}

func lowerLabels(labels []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = strings.ToLower(strings.TrimSpace(l))
	}
	return out
}
