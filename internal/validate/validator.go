// Package validate filters raw labeler output down to spans the anonymizers
// can trust: confidence gating, position bounds, text consistency against the
// source, and overlap resolution under a configurable tie-break policy.
package validate

import (
	"regexp"
	"strings"

	"entity-cloak/internal/config"
	"entity-cloak/internal/entity"
	"entity-cloak/internal/logger"
)

// maxSpanLength rejects pathologically long spans; real entities are short.
const maxSpanLength = 200

var whitespaceRe = regexp.MustCompile(`\s+`)

// Stats counts what happened to the spans of the most recent Validate call.
type Stats struct {
	Total              int `json:"total_entities"`
	ConfidenceFiltered int `json:"confidence_filtered"`
	PositionInvalid    int `json:"position_invalid"`
	TextMismatch       int `json:"text_mismatch"`
	Valid              int `json:"valid_entities"`
}

// Validator applies per-span checks and overlap resolution.
type Validator struct {
	minConfidence float64
	strict        bool
	log           *logger.Logger
	stats         Stats
}

// New returns a validator with the given default confidence floor.
// strict toggles the position and text-consistency checks.
func New(minConfidence float64, strict bool, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Nop()
	}
	return &Validator{minConfidence: minConfidence, strict: strict, log: log}
}

// Validate filters spans against source, applying in order the confidence,
// position and text-consistency checks; each dropped span increments the
// matching counter. Survivors are cleaned: Text is recomputed from the
// source substring (the authoritative value), Label is lower-cased and
// trimmed. minConfidence < 0 means "use the validator's default".
func (v *Validator) Validate(spans []entity.Span, source string, minConfidence float64) []entity.Span {
	threshold := v.minConfidence
	if minConfidence >= 0 {
		threshold = minConfidence
	}

	v.stats = Stats{Total: len(spans)}
	if len(spans) == 0 {
		return nil
	}
	v.log.Infof("validate", "validating %d spans (min_confidence=%.2f)", len(spans), threshold)

	out := make([]entity.Span, 0, len(spans))
	for _, s := range spans {
		if s.Score < threshold {
			v.stats.ConfidenceFiltered++
			continue
		}
		if v.strict && !validPosition(s, len(source)) {
			v.stats.PositionInvalid++
			continue
		}
		if v.strict && !textConsistent(s, source) {
			v.stats.TextMismatch++
			continue
		}
		out = append(out, clean(s, source, v.strict))
	}
	v.stats.Valid = len(out)

	v.log.Infof("validate", "%d/%d spans passed", len(out), len(spans))
	if v.stats.ConfidenceFiltered > 0 {
		v.log.Debugf("validate", "filtered by confidence: %d", v.stats.ConfidenceFiltered)
	}
	if v.stats.PositionInvalid > 0 {
		v.log.Debugf("validate", "invalid positions: %d", v.stats.PositionInvalid)
	}
	if v.stats.TextMismatch > 0 {
		v.log.Debugf("validate", "text mismatches: %d", v.stats.TextMismatch)
	}
	return out
}

// LastStats returns the counters from the most recent Validate call.
func (v *Validator) LastStats() Stats { return v.stats }

func validPosition(s entity.Span, textLen int) bool {
	if s.Start < 0 || s.End < 0 {
		return false
	}
	if s.Start >= textLen || s.End > textLen {
		return false
	}
	if s.Start >= s.End {
		return false
	}
	return s.End-s.Start <= maxSpanLength
}

// textConsistent checks the stored text against the source substring,
// tolerating whitespace runs, case differences, and minor tokenization
// drift (substring in either direction).
func textConsistent(s entity.Span, source string) bool {
	actual := normalizeWS(source[s.Start:s.End])
	stored := normalizeWS(s.Text)

	if stored == actual {
		return true
	}
	if strings.EqualFold(stored, actual) {
		return true
	}
	return strings.Contains(actual, stored) || strings.Contains(stored, actual)
}

func normalizeWS(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func clean(s entity.Span, source string, strict bool) entity.Span {
	if strict {
		s.Text = strings.TrimSpace(source[s.Start:s.End])
	}
	s.Label = strings.ToLower(strings.TrimSpace(s.Label))
	return s
}

// ResolveOverlaps eliminates one member of every intersecting pair under the
// given strategy, greedily in pair-detection order; a span already removed by
// an earlier pair is skipped. On equal score or length the second span of
// the pair is dropped; the "first" strategy always drops the span that came
// later in input order. After resolution no two surviving spans overlap.
func (v *Validator) ResolveOverlaps(spans []entity.Span, strategy string) []entity.Span {
	if len(spans) == 0 {
		return nil
	}

	type pair struct{ i, j int }
	var overlaps []pair
	for i := 0; i < len(spans); i++ {
		for j := i + 1; j < len(spans); j++ {
			if spans[i].Overlaps(spans[j]) {
				overlaps = append(overlaps, pair{i, j})
			}
		}
	}
	if len(overlaps) == 0 {
		out := make([]entity.Span, len(spans))
		copy(out, spans)
		return out
	}
	v.log.Infof("overlaps", "resolving %d overlapping pairs using %q", len(overlaps), strategy)

	removed := make(map[int]bool)
	for _, p := range overlaps {
		if removed[p.i] || removed[p.j] {
			continue
		}
		a, b := spans[p.i], spans[p.j]
		switch strategy {
		case config.OverlapHighestConfidence:
			if b.Score > a.Score {
				removed[p.i] = true
			} else {
				removed[p.j] = true
			}
		case config.OverlapLongest:
			if b.Length() > a.Length() {
				removed[p.i] = true
			} else {
				removed[p.j] = true
			}
		case config.OverlapFirst:
			removed[p.j] = true
		default:
			v.log.Warnf("overlaps", "unknown strategy %q, keeping earlier span", strategy)
			removed[p.j] = true
		}
	}

	out := make([]entity.Span, 0, len(spans)-len(removed))
	for i, s := range spans {
		if !removed[i] {
			out = append(out, s)
		}
	}
	v.log.Infof("overlaps", "resolution: %d -> %d spans", len(spans), len(out))
	return out
}
