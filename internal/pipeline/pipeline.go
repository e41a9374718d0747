// Package pipeline wires the extraction and anonymization stages into one
// caller-owned object: chunking, labeling (cached or parallel), validation,
// overlap resolution, merging, and the redaction/replacement back ends.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"entity-cloak/internal/chunker"
	"entity-cloak/internal/config"
	"entity-cloak/internal/entity"
	"entity-cloak/internal/extractor"
	"entity-cloak/internal/generate"
	"entity-cloak/internal/labeler"
	"entity-cloak/internal/logger"
	"entity-cloak/internal/merge"
	"entity-cloak/internal/metrics"
	"entity-cloak/internal/redact"
	"entity-cloak/internal/replace"
	"entity-cloak/internal/validate"
)

// Version is reported in every ProcessingInfo.
const Version = "1.0.0"

// DefaultLabels is the label set used when a caller passes none.
var DefaultLabels = []string{"person", "date", "location", "organization"}

// Extraction method names reported in ProcessingInfo.
const (
	methodMultiPass = "multipass"
	methodParallel  = "parallel"
)

// ProcessingInfo describes one extraction run.
type ProcessingInfo struct {
	RunID           string               `json:"run_id"`
	Version         string               `json:"version"`
	TextLength      int                  `json:"text_length"`
	WordCount       int                  `json:"word_count"`
	DurationMs      float64              `json:"duration_ms"`
	Method          string               `json:"method"`
	PassesCompleted int                  `json:"passes_completed"`
	ChunksTotal     int                  `json:"chunks_total"`
	ChunksFailed    int                  `json:"chunks_failed"`
	SpansDetected   int                  `json:"spans_detected"`
	SpansValidated  int                  `json:"spans_validated"`
	SpansFinal      int                  `json:"spans_final"`
	MinConfidence   float64              `json:"min_confidence"`
	Labels          []string             `json:"labels"`
	Validation      validate.Stats       `json:"validation_stats"`
	Cache           extractor.CacheStats `json:"cache_stats"`
}

// ExtractResult is the outcome of one extraction run.
type ExtractResult struct {
	Spans []entity.Span  `json:"entities"`
	Info  ProcessingInfo `json:"processing_info"`
}

// RedactResult combines an extraction run with its redaction.
type RedactResult struct {
	Redaction  redact.Result  `json:"redaction"`
	Spans      []entity.Span  `json:"entities"`
	Processing ProcessingInfo `json:"processing_info"`
}

// ReplaceResult combines an extraction run with its replacement.
type ReplaceResult struct {
	Replacement replace.Result `json:"replacement"`
	Spans       []entity.Span  `json:"entities"`
	Processing  ProcessingInfo `json:"processing_info"`
}

// Pipeline owns every stage. Safe for concurrent use.
type Pipeline struct {
	cfg *config.Config
	log *logger.Logger

	dispatcher *extractor.Dispatcher
	cache      *extractor.Cache
	validator  *validate.Validator
	merger     *merge.Merger
	redactor   *redact.Redactor
	replacer   *replace.Replacer
	met        *metrics.Metrics
}

// New builds a pipeline over the configured HTTP labeler. Construction fails
// with ErrConfiguration when the configuration cannot support a working
// pipeline (no labeler endpoint, bad locale).
func New(cfg *config.Config, log *logger.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfiguration)
	}
	if log == nil {
		log = logger.Nop()
	}
	if strings.TrimSpace(cfg.Labeler.Endpoint) == "" {
		return nil, fmt.Errorf("%w: labeler endpoint is required", ErrConfiguration)
	}
	client, err := labeler.NewHTTPClient(
		cfg.Labeler.Endpoint,
		cfg.Labeler.Model,
		time.Duration(cfg.Labeler.TimeoutSeconds)*time.Second,
		log.WithModule("labeler"),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return NewWithLabeler(cfg, client, log)
}

// NewWithLabeler builds a pipeline over a caller-supplied labeler. Used by
// tests and by embedders with their own inference transport.
func NewWithLabeler(cfg *config.Config, l labeler.Labeler, log *logger.Logger) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrConfiguration)
	}
	if l == nil {
		return nil, fmt.Errorf("%w: nil labeler", ErrConfiguration)
	}
	if log == nil {
		log = logger.Nop()
	}

	gen, err := generate.NewFaker(cfg.Replacement.Locale, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	multipass := extractor.NewMultiPass(l, log.WithModule("extractor"))
	cache := extractor.NewCache(func(ctx context.Context, text string, labels []string) ([]entity.Span, error) {
		return multipass.Extract(ctx, text, labels, cfg.Extraction.MaxPasses)
	}, cfg.Extraction.CacheSize)

	return &Pipeline{
		cfg:        cfg,
		log:        log.WithModule("pipeline"),
		dispatcher: extractor.NewDispatcher(l, cfg.Extraction.WorkerCount, log.WithModule("dispatch")),
		cache:      cache,
		validator:  validate.New(cfg.Extraction.MinConfidence, true, log.WithModule("validate")),
		merger:     merge.New(merge.DefaultMaxGap, log.WithModule("merge")),
		redactor:   redact.New(cfg.Redaction.PlaceholderFormat, log.WithModule("redact")),
		replacer: replace.New(gen, nil, cfg.Replacement.Strategies,
			cfg.Replacement.EnsureConsistency, log.WithModule("replace")),
		met: metrics.New(),
	}, nil
}

// Extract runs the full detection pipeline over text. Blank input returns an
// empty result rather than an error: there is nothing to anonymize, which is
// a perfectly valid outcome. Texts longer than one chunk take the parallel
// path; everything else goes through the cached multi-pass extractor.
func (p *Pipeline) Extract(ctx context.Context, text string, labels []string) (ExtractResult, error) {
	start := time.Now()
	p.met.RunsTotal.Add(1)

	info := ProcessingInfo{
		RunID:         uuid.NewString(),
		Version:       Version,
		TextLength:    len(text),
		MinConfidence: p.cfg.Extraction.MinConfidence,
	}
	if strings.TrimSpace(text) == "" {
		info.Labels = normalizeLabels(labels)
		return ExtractResult{Spans: []entity.Span{}, Info: info}, nil
	}

	labels = normalizeLabels(labels)
	info.Labels = labels
	info.WordCount = chunker.WordCount(text)

	var spans []entity.Span
	var err error
	if info.WordCount > p.cfg.Extraction.ChunkSize {
		info.Method = methodParallel
		info.PassesCompleted = 1
		info.ChunksTotal = chunker.EstimateCount(text, p.cfg.Extraction.ChunkSize)
		p.met.RunsParallel.Add(1)

		var failed int
		spans, failed, err = p.dispatcher.Dispatch(ctx, text, labels,
			p.cfg.Extraction.ChunkSize, p.cfg.Extraction.MinConfidence)
		info.ChunksFailed = failed
		p.met.ChunksProcessed.Add(int64(info.ChunksTotal - failed))
		p.met.ChunksFailed.Add(int64(failed))
	} else {
		info.Method = methodMultiPass
		info.PassesCompleted = p.cfg.Extraction.MaxPasses
		spans, err = p.cache.Extract(ctx, text, labels)
	}
	if err != nil {
		p.met.RunsFailed.Add(1)
		return ExtractResult{}, fmt.Errorf("extraction failed: %w", err)
	}
	info.SpansDetected = len(spans)
	p.met.SpansDetected.Add(int64(len(spans)))

	if p.cfg.Extraction.EnableValidation {
		spans = p.validator.Validate(spans, text, p.cfg.Extraction.MinConfidence)
		info.Validation = p.validator.LastStats()
	}
	if p.cfg.Extraction.ResolveOverlaps {
		spans = p.validator.ResolveOverlaps(spans, p.cfg.Extraction.OverlapStrategy)
	}
	info.SpansValidated = len(spans)
	p.met.SpansValidated.Add(int64(len(spans)))

	if p.cfg.Extraction.MergeEntities {
		spans = p.merger.Merge(spans, text)
	}
	info.SpansFinal = len(spans)
	p.met.SpansMerged.Add(int64(len(spans)))

	elapsed := time.Since(start)
	info.DurationMs = float64(elapsed.Microseconds()) / 1000.0
	info.Cache = p.cache.Stats()
	p.met.RecordExtractLatency(elapsed)

	p.log.Infof("extract", "run %s: %d spans via %s in %.1fms",
		info.RunID, len(spans), info.Method, info.DurationMs)

	if spans == nil {
		spans = []entity.Span{}
	}
	return ExtractResult{Spans: spans, Info: info}, nil
}

// Redact extracts entities from text and replaces them with numbered
// placeholders.
func (p *Pipeline) Redact(ctx context.Context, text string, labels []string) (RedactResult, error) {
	ext, err := p.Extract(ctx, text, labels)
	if err != nil {
		return RedactResult{}, err
	}
	res := p.redactor.Redact(text, ext.Spans, redact.Options{
		Numbered:      p.cfg.Redaction.Numbered,
		Format:        p.cfg.Redaction.PlaceholderFormat,
		ConsistentIDs: p.cfg.Redaction.ConsistentIDs,
	})
	p.met.SpansRedacted.Add(int64(res.Info.RedactionsApplied))
	return RedactResult{Redaction: res, Spans: ext.Spans, Processing: ext.Info}, nil
}

// RedactBatch extracts and redacts a set of texts with one shared id
// assignment, so the same entity carries the same number in every text.
func (p *Pipeline) RedactBatch(ctx context.Context, texts []string, labels []string) ([]RedactResult, error) {
	spansPerText := make([][]entity.Span, len(texts))
	infos := make([]ProcessingInfo, len(texts))
	for i, text := range texts {
		ext, err := p.Extract(ctx, text, labels)
		if err != nil {
			return nil, fmt.Errorf("text %d: %w", i, err)
		}
		spansPerText[i] = ext.Spans
		infos[i] = ext.Info
	}

	redactions := p.redactor.RedactBatch(texts, spansPerText, redact.Options{
		Numbered:      p.cfg.Redaction.Numbered,
		Format:        p.cfg.Redaction.PlaceholderFormat,
		ConsistentIDs: p.cfg.Redaction.ConsistentIDs,
	})

	results := make([]RedactResult, len(texts))
	for i := range texts {
		p.met.SpansRedacted.Add(int64(redactions[i].Info.RedactionsApplied))
		results[i] = RedactResult{
			Redaction:  redactions[i],
			Spans:      spansPerText[i],
			Processing: infos[i],
		}
	}
	return results, nil
}

// Replace extracts entities from text and substitutes synthetic values.
func (p *Pipeline) Replace(ctx context.Context, text string, labels []string) (ReplaceResult, error) {
	ext, err := p.Extract(ctx, text, labels)
	if err != nil {
		return ReplaceResult{}, err
	}
	res := p.replacer.Replace(text, ext.Spans)
	p.met.SpansReplaced.Add(int64(res.Info.ReplacementsApplied))
	return ReplaceResult{Replacement: res, Spans: ext.Spans, Processing: ext.Info}, nil
}

// ReplaceWithData extracts entities and substitutes caller-supplied values.
// data maps labels to candidate values; unlisted labels are left untouched.
func (p *Pipeline) ReplaceWithData(ctx context.Context, text string, labels []string, data map[string][]string) (ReplaceResult, error) {
	ext, err := p.Extract(ctx, text, labels)
	if err != nil {
		return ReplaceResult{}, err
	}
	res := p.replacer.ReplaceWithData(text, ext.Spans, data)
	p.met.SpansReplaced.Add(int64(res.Info.ReplacementsApplied))
	return ReplaceResult{Replacement: res, Spans: ext.Spans, Processing: ext.Info}, nil
}

// Metrics returns a point-in-time snapshot of the pipeline counters. Cache
// counters are synced from the extraction cache, which keeps its own totals.
func (p *Pipeline) Metrics() metrics.Snapshot {
	stats := p.cache.Stats()
	p.met.CacheHits.Store(stats.Hits)
	p.met.CacheMisses.Store(stats.Misses)
	return p.met.Snapshot()
}

// CacheStats returns extraction cache effectiveness statistics.
func (p *Pipeline) CacheStats() extractor.CacheStats { return p.cache.Stats() }

// Reset clears all per-instance state: the extraction cache, the redaction
// id history, and the replacement consistency cache.
func (p *Pipeline) Reset() {
	p.cache.Clear()
	p.redactor.ClearHistory()
	p.replacer.ClearCache()
	p.log.Info("reset", "pipeline caches and histories cleared")
}

// normalizeLabels lower-cases and trims labels, substituting the default set
// when none are given.
func normalizeLabels(labels []string) []string {
	if len(labels) == 0 {
		out := make([]string, len(DefaultLabels))
		copy(out, DefaultLabels)
		return out
	}
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if t := strings.ToLower(strings.TrimSpace(l)); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		out = append(out, DefaultLabels...)
	}
	return out
}
