package replace

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"entity-cloak/internal/generate"
)

// datePattern pairs a recognizer with the Go layout used to render the
// replacement, so a date always comes back in the format it arrived in.
type datePattern struct {
	re     *regexp.Regexp
	layout string
}

// Patterns are tried in order; the first match decides the output format.
var datePatterns = []datePattern{
	{regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`), "01/02/2006"},
	{regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`), "01-02-2006"},
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), "2006-01-02"},
	{regexp.MustCompile(`^\d{1,2} [A-Za-z]+ \d{4}$`), "2 January 2006"},
	{regexp.MustCompile(`^[A-Za-z]+ \d{1,2}, \d{4}$`), "January 2, 2006"},
	{regexp.MustCompile(`^[A-Za-z]+ \d{1,2} \d{4}$`), "January 2 2006"},
	{regexp.MustCompile(`^\d{4}$`), "2006"},
}

// DateStrategy replaces dates with random dates rendered in the same
// format. Birth-date labels draw from an adult age range.
type DateStrategy struct {
	gen generate.Generator
	now func() time.Time
}

// NewDate builds the strategy around a generator. now is the clock used for
// age-ranged dates; nil means time.Now.
func NewDate(gen generate.Generator, now func() time.Time) *DateStrategy {
	if now == nil {
		now = time.Now
	}
	return &DateStrategy{gen: gen, now: now}
}

func (s *DateStrategy) Name() string { return "date" }

// CanHandle accepts date-flavored labels.
func (s *DateStrategy) CanHandle(label string) bool {
	lower := strings.ToLower(strings.TrimSpace(label))
	return strings.Contains(lower, "date") ||
		strings.Contains(lower, "birthday") ||
		lower == "dob"
}

// Generate parses the original against the known formats and produces a
// random date in the matched format. Unparseable values are an error so the
// chain can fall through to the next strategy.
func (s *DateStrategy) Generate(label, original string) (string, error) {
	trimmed := strings.TrimSpace(original)
	for _, p := range datePatterns {
		if !p.re.MatchString(trimmed) {
			continue
		}
		start, end := s.rangeFor(label)
		return s.gen.DateBetween(start, end).Format(p.layout), nil
	}
	return "", fmt.Errorf("unrecognized date format: %q", original)
}

// rangeFor returns the sampling window. Birth dates land 18 to 80 years in
// the past; everything else anywhere from 1950 to today.
func (s *DateStrategy) rangeFor(label string) (time.Time, time.Time) {
	now := s.now()
	lower := strings.ToLower(label)
	if strings.Contains(lower, "birth") || lower == "dob" {
		return now.AddDate(-generate.MaxAge, 0, 0), now.AddDate(-generate.MinAge, 0, 0)
	}
	return time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC), now
}
