package replace

import (
	"math/rand"
	"strings"
	"unicode"
)

// FallbackStrategy is the terminal strategy: it scrambles the original
// character-by-character, preserving its shape. Digits become random digits,
// letters become random letters of the same case, everything else stays.
// It never fails, so every chain that ends with it always yields a value.
type FallbackStrategy struct {
	rng *rand.Rand
}

// NewFallback builds the strategy around a random source.
func NewFallback(rng *rand.Rand) *FallbackStrategy {
	return &FallbackStrategy{rng: rng}
}

func (s *FallbackStrategy) Name() string { return "default" }

// CanHandle accepts everything.
func (s *FallbackStrategy) CanHandle(string) bool { return true }

// Generate scrambles the original in place. A value with no letters or
// digits has nothing to scramble and becomes a static placeholder instead.
func (s *FallbackStrategy) Generate(label, original string) (string, error) {
	var b strings.Builder
	scrambled := false
	for _, r := range original {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(rune('0' + s.rng.Intn(10)))
			scrambled = true
		case unicode.IsUpper(r):
			b.WriteRune(rune('A' + s.rng.Intn(26)))
			scrambled = true
		case unicode.IsLower(r):
			b.WriteRune(rune('a' + s.rng.Intn(26)))
			scrambled = true
		default:
			b.WriteRune(r)
		}
	}
	if !scrambled {
		return "[" + strings.ToUpper(strings.TrimSpace(label)) + "_REDACTED]", nil
	}
	return b.String(), nil
}
