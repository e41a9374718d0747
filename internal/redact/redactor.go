// Package redact applies numbered, reversible placeholder substitution.
//
// Identical entities — same (label, original text) — receive the same id, so
// "John Smith" redacts to the same placeholder everywhere it appears. Ids are
// allocated per label, smallest unused positive integer first, and the
// allocator lives on the Redactor instance: ids stay stable across calls
// until ClearHistory.
package redact

import (
	"strconv"
	"strings"

	"entity-cloak/internal/entity"
	"entity-cloak/internal/logger"
)

// DefaultFormat is the placeholder template used when none is configured.
// Substitutable fields: {id}, {label}, {count}.
const DefaultFormat = "#{id}_{label}_REDACTED"

// Options control one redaction call.
type Options struct {
	// Numbered selects numbered placeholders; otherwise LABEL_REDACTED.
	Numbered bool
	// Format overrides the redactor's default placeholder template.
	Format string
	// ConsistentIDs gives identical (label, text) pairs identical ids.
	ConsistentIDs bool
}

// Result is the outcome of one redaction call.
type Result struct {
	AnonymizedText      string                   `json:"anonymized_text"`
	Details             []entity.RedactionDetail `json:"replacements"`
	ReIdentificationMap map[string]string        `json:"re_identification_map"`
	Info                Info                     `json:"redaction_info"`
}

// Info carries redaction run statistics.
type Info struct {
	EntitiesProcessed int    `json:"entities_processed"`
	RedactionsApplied int    `json:"redactions_applied"`
	UniqueEntities    int    `json:"unique_entities"`
	FormatUsed        string `json:"format_used"`
	Numbered          bool   `json:"numbered"`
	ConsistentIDs     bool   `json:"consistent_ids"`
}

// Redactor substitutes spans with numbered placeholders.
type Redactor struct {
	defaultFormat string
	usedIDs       map[string]map[int]bool // label -> allocated ids
	log           *logger.Logger
}

// New returns a redactor with the given default placeholder format
// (DefaultFormat when blank).
func New(defaultFormat string, log *logger.Logger) *Redactor {
	if strings.TrimSpace(defaultFormat) == "" {
		defaultFormat = DefaultFormat
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Redactor{
		defaultFormat: defaultFormat,
		usedIDs:       make(map[string]map[int]bool),
		log:           log,
	}
}

// Redact replaces every span in text with a placeholder. Replacement runs in
// descending start order so earlier substitutions never shift the offsets of
// spans not yet processed. The returned details are sorted by original start;
// the re-identification map records placeholder -> original for every applied
// redaction (last write wins on placeholder collisions).
func (r *Redactor) Redact(text string, spans []entity.Span, opts Options) Result {
	var ids map[entity.Key]string
	if opts.Numbered && opts.ConsistentIDs {
		ids = r.AssignIDs(spans)
	}
	return r.redact(text, spans, opts, ids)
}

// RedactBatch redacts each text with one global id assignment computed over
// all span lists first, so identical entities are numbered consistently
// across the whole document set.
func (r *Redactor) RedactBatch(texts []string, spans [][]entity.Span, opts Options) []Result {
	var all []entity.Span
	for _, list := range spans {
		all = append(all, list...)
	}
	global := r.AssignIDs(all)

	results := make([]Result, 0, len(texts))
	for i, text := range texts {
		var list []entity.Span
		if i < len(spans) {
			list = spans[i]
		}
		results = append(results, r.redact(text, list, opts, global))
	}
	r.log.Infof("batch", "batch redaction of %d texts complete", len(texts))
	return results
}

// redact performs the substitution walk. When numbering is on, ids supplies
// the assignment for consistent mode; a nil ids map means every span gets a
// fresh id from the allocator.
func (r *Redactor) redact(text string, spans []entity.Span, opts Options, ids map[entity.Key]string) Result {
	format := opts.Format
	if strings.TrimSpace(format) == "" {
		format = r.defaultFormat
	}
	info := Info{
		EntitiesProcessed: len(spans),
		FormatUsed:        format,
		Numbered:          opts.Numbered,
		ConsistentIDs:     opts.ConsistentIDs,
	}
	if len(spans) == 0 {
		return Result{AnonymizedText: text, ReIdentificationMap: map[string]string{}, Info: info}
	}
	r.log.Infof("redact", "redacting %d spans (format=%q)", len(spans), format)

	ordered := make([]entity.Span, len(spans))
	copy(ordered, spans)
	entity.SortByStart(ordered)

	redacted := text
	details := make([]entity.RedactionDetail, 0, len(ordered))
	reident := make(map[string]string, len(ordered))

	// Walk right to left so offsets into the working text stay valid.
	for i := len(ordered) - 1; i >= 0; i-- {
		s := ordered[i]
		if s.Start < 0 || s.End > len(redacted) || s.Start >= s.End {
			r.log.Warnf("skip", "span out of range: %+v", s)
			continue
		}

		labelUpper := strings.ToUpper(s.Label)
		var placeholder, redactionID string
		switch {
		case opts.Numbered && ids != nil:
			redactionID = ids[entity.KeyOf(s)]
			placeholder = expandFormat(format, redactionID, labelUpper)
		case opts.Numbered:
			redactionID = strconv.Itoa(r.allocateID(labelUpper))
			placeholder = expandFormat(format, redactionID, labelUpper)
		default:
			placeholder = labelUpper + "_REDACTED"
			redactionID = labelUpper + "_STATIC"
		}

		redacted = redacted[:s.Start] + placeholder + redacted[s.End:]
		details = append(details, entity.RedactionDetail{
			Label:       labelUpper,
			Original:    s.Text,
			Placeholder: placeholder,
			Start:       s.Start,
			End:         s.End,
			Score:       s.Score,
			RedactionID: redactionID,
		})
		reident[placeholder] = s.Text
	}

	// Details were built right to left; present them by original position.
	for i, j := 0, len(details)-1; i < j; i, j = i+1, j-1 {
		details[i], details[j] = details[j], details[i]
	}

	unique := make(map[entity.Key]bool, len(details))
	for _, d := range details {
		unique[entity.Key{Label: d.Label, Text: d.Original}] = true
	}

	info.RedactionsApplied = len(details)
	info.UniqueEntities = len(unique)
	r.log.Infof("redact", "%d redactions applied", len(details))
	return Result{
		AnonymizedText:      redacted,
		Details:             details,
		ReIdentificationMap: reident,
		Info:                info,
	}
}

// AssignIDs gives each distinct (label, text) pair in spans the smallest
// unused positive integer id for its label, consuming the instance allocator.
// Pairs seen earlier in spans get smaller ids.
func (r *Redactor) AssignIDs(spans []entity.Span) map[entity.Key]string {
	ids := make(map[entity.Key]string)
	for _, s := range spans {
		key := entity.KeyOf(s)
		if _, ok := ids[key]; ok {
			continue
		}
		ids[key] = strconv.Itoa(r.allocateID(strings.ToUpper(s.Label)))
	}
	return ids
}

// allocateID returns the smallest positive integer not yet used for label.
func (r *Redactor) allocateID(label string) int {
	used, ok := r.usedIDs[label]
	if !ok {
		used = make(map[int]bool)
		r.usedIDs[label] = used
	}
	id := 1
	for used[id] {
		id++
	}
	used[id] = true
	return id
}

// ClearHistory resets the per-label id allocator; subsequent calls number
// from 1 again.
func (r *Redactor) ClearHistory() {
	r.usedIDs = make(map[string]map[int]bool)
	r.log.Info("clear", "redaction id history cleared")
}

// expandFormat substitutes {id}, {label} and {count} in the template.
func expandFormat(format, id, label string) string {
	return strings.NewReplacer(
		"{id}", id,
		"{label}", label,
		"{count}", id,
	).Replace(format)
}
