package replace

import (
	"math/rand"
	"strings"
	"sync"

	"entity-cloak/internal/entity"
	"entity-cloak/internal/generate"
	"entity-cloak/internal/logger"
)

// Result is the outcome of one replacement call.
type Result struct {
	AnonymizedText string                     `json:"anonymized_text"`
	Details        []entity.ReplacementDetail `json:"replacements"`
	ReplacementMap map[string]string          `json:"replacement_map"`
	Info           Info                       `json:"replacement_info"`
}

// Info carries replacement run statistics.
type Info struct {
	EntitiesProcessed   int            `json:"entities_processed"`
	ReplacementsApplied int            `json:"replacements_applied"`
	CacheHits           int            `json:"cache_hits"`
	StrategyCounts      map[string]int `json:"strategy_counts"`
}

// cachedValue remembers what an entity was replaced with and by which
// strategy, so repeated entities stay consistent across calls.
type cachedValue struct {
	value    string
	strategy string
}

// Replacer substitutes spans with synthetic values chosen by per-label
// strategy chains. Safe for concurrent use.
type Replacer struct {
	set       *strategySet
	overrides map[string]Strategy

	mu          sync.Mutex
	consistency map[entity.Key]cachedValue
	consistent  bool

	log *logger.Logger
}

// New builds a replacer around a value generator. overrides maps labels to
// strategy names that should be tried first for that label; unknown names
// are ignored with a warning. When consistent is true, repeated entities
// reuse the first value generated for them.
func New(gen generate.Generator, rng *rand.Rand, overrides map[string]string, consistent bool, log *logger.Logger) *Replacer {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63())) // #nosec G404 -- surrogate values, not secrets
	}
	if log == nil {
		log = logger.Nop()
	}
	set := &strategySet{
		synthetic: NewSynthetic(gen),
		country:   NewCountry(rng),
		date:      NewDate(gen, nil),
		fallback:  NewFallback(rng),
	}
	resolved := make(map[string]Strategy, len(overrides))
	for label, name := range overrides {
		st := set.byName(name)
		if st == nil {
			log.Warnf("config", "unknown replacement strategy %q for label %q", name, label)
			continue
		}
		resolved[strings.ToLower(strings.TrimSpace(label))] = st
	}
	return &Replacer{
		set:         set,
		overrides:   resolved,
		consistency: make(map[entity.Key]cachedValue),
		consistent:  consistent,
		log:         log,
	}
}

// Replace substitutes every span in text with a strategy-generated value.
// Substitution runs in descending start order so earlier replacements never
// shift the offsets of spans not yet processed.
func (r *Replacer) Replace(text string, spans []entity.Span) Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replace(text, spans, r.valueFor)
}

// ReplaceWithData substitutes spans using caller-supplied values instead of
// generated ones. data maps labels to candidate values; a random candidate
// is chosen per distinct entity and reused for its repeats within this call.
// Spans whose label has no entry are left untouched.
func (r *Replacer) ReplaceWithData(text string, spans []entity.Span, data map[string][]string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Consistency for user data is scoped to the call, not the instance.
	callCache := make(map[entity.Key]string)
	rng := r.set.fallback.rng

	return r.replace(text, spans, func(s entity.Span) (string, string, bool) {
		key := entity.KeyOf(s)
		if v, ok := callCache[key]; ok {
			return v, "user_data", true
		}
		candidates := data[strings.ToLower(strings.TrimSpace(s.Label))]
		if len(candidates) == 0 {
			return "", "", false
		}
		v := candidates[rng.Intn(len(candidates))]
		callCache[key] = v
		return v, "user_data", true
	})
}

// replace performs the substitution walk; valueFor decides each span's
// replacement and reports whether one applies.
func (r *Replacer) replace(text string, spans []entity.Span, valueFor func(entity.Span) (string, string, bool)) Result {
	info := Info{
		EntitiesProcessed: len(spans),
		StrategyCounts:    make(map[string]int),
	}
	if len(spans) == 0 {
		return Result{AnonymizedText: text, ReplacementMap: map[string]string{}, Info: info}
	}
	r.log.Infof("replace", "replacing %d spans", len(spans))

	ordered := make([]entity.Span, len(spans))
	copy(ordered, spans)
	entity.SortByStart(ordered)

	replaced := text
	details := make([]entity.ReplacementDetail, 0, len(ordered))
	replMap := make(map[string]string, len(ordered))

	for i := len(ordered) - 1; i >= 0; i-- {
		s := ordered[i]
		if s.Start < 0 || s.End > len(replaced) || s.Start >= s.End {
			r.log.Warnf("skip", "span out of range: %+v", s)
			continue
		}
		value, strategy, ok := valueFor(s)
		if !ok {
			continue
		}
		replaced = replaced[:s.Start] + value + replaced[s.End:]
		details = append(details, entity.ReplacementDetail{
			Label:        s.Label,
			Original:     s.Text,
			Replacement:  value,
			Start:        s.Start,
			End:          s.End,
			Score:        s.Score,
			StrategyUsed: strategy,
		})
		replMap[s.Text] = value
		info.StrategyCounts[strategy]++
		if strings.HasSuffix(strategy, "_cached") {
			info.CacheHits++
		}
	}

	for i, j := 0, len(details)-1; i < j; i, j = i+1, j-1 {
		details[i], details[j] = details[j], details[i]
	}

	info.ReplacementsApplied = len(details)
	r.log.Infof("replace", "%d replacements applied", len(details))
	return Result{AnonymizedText: replaced, Details: details, ReplacementMap: replMap, Info: info}
}

// valueFor runs the span's strategy chain, consulting the instance
// consistency cache first. Caller holds r.mu.
func (r *Replacer) valueFor(s entity.Span) (string, string, bool) {
	key := entity.KeyOf(s)
	if r.consistent {
		if c, ok := r.consistency[key]; ok {
			return c.value, c.strategy + "_cached", true
		}
	}

	for _, st := range r.chain(s.Label) {
		if !st.CanHandle(s.Label) {
			continue
		}
		value, err := st.Generate(s.Label, s.Text)
		if err != nil {
			r.log.Debugf("strategy", "%s failed for %q: %v", st.Name(), s.Label, err)
			continue
		}
		// The terminal fallback is accepted as-is; other strategies must
		// actually change the value.
		if value == "" || (value == s.Text && st != r.set.fallback) {
			continue
		}
		if r.consistent {
			r.consistency[key] = cachedValue{value: value, strategy: st.Name()}
		}
		return value, st.Name(), true
	}
	return "", "", false
}

// chain returns the strategy order for a label, with any configured
// override tried first.
func (r *Replacer) chain(label string) []Strategy {
	base := chainFor(label, r.set)
	override, ok := r.overrides[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return base
	}
	out := make([]Strategy, 0, len(base)+1)
	out = append(out, override)
	for _, st := range base {
		if st != override {
			out = append(out, st)
		}
	}
	return out
}

// ClearCache drops the instance consistency cache; subsequent calls generate
// fresh values for previously seen entities.
func (r *Replacer) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consistency = make(map[entity.Key]cachedValue)
	r.log.Info("clear", "replacement consistency cache cleared")
}
