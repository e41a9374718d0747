// Package metrics provides lightweight, lock-minimal performance counters
// for the extraction and anonymization pipeline.
//
// Counters use sync/atomic so hot paths (chunk workers, span processing)
// incur no mutex contention. Latency statistics use a single mutex per
// dimension; they are updated at most once per pipeline run.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds all runtime counters for a running pipeline instance.
type Metrics struct {
	// Run counters
	RunsTotal    atomic.Int64
	RunsParallel atomic.Int64 // runs that took the chunked path
	RunsFailed   atomic.Int64

	// Chunk counters
	ChunksProcessed atomic.Int64
	ChunksFailed    atomic.Int64

	// Span volume by stage
	SpansDetected  atomic.Int64 // raw labeler output
	SpansValidated atomic.Int64 // survived validation and overlap resolution
	SpansMerged    atomic.Int64 // after adjacent-span merging
	SpansRedacted  atomic.Int64
	SpansReplaced  atomic.Int64

	// Extraction cache effectiveness
	CacheHits   atomic.Int64
	CacheMisses atomic.Int64

	// Latency statistics (mutex-guarded because they accumulate floats)
	extractMu   sync.Mutex
	extractStat latencyStats

	startTime time.Time
}

// New returns a new Metrics with the start time recorded.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordExtractLatency records the duration of one extraction run.
func (m *Metrics) RecordExtractLatency(d time.Duration) {
	m.extractMu.Lock()
	m.extractStat.record(float64(d.Microseconds()) / 1000.0)
	m.extractMu.Unlock()
}

// Snapshot returns a point-in-time copy of all metrics, safe for JSON encoding.
func (m *Metrics) Snapshot() Snapshot {
	m.extractMu.Lock()
	extract := m.extractStat.snapshot()
	m.extractMu.Unlock()

	return Snapshot{
		Runs: RunSnapshot{
			Total:    m.RunsTotal.Load(),
			Parallel: m.RunsParallel.Load(),
			Failed:   m.RunsFailed.Load(),
		},
		Chunks: ChunkSnapshot{
			Processed: m.ChunksProcessed.Load(),
			Failed:    m.ChunksFailed.Load(),
		},
		Spans: SpanSnapshot{
			Detected:  m.SpansDetected.Load(),
			Validated: m.SpansValidated.Load(),
			Merged:    m.SpansMerged.Load(),
			Redacted:  m.SpansRedacted.Load(),
			Replaced:  m.SpansReplaced.Load(),
		},
		Cache: CacheSnapshot{
			Hits:   m.CacheHits.Load(),
			Misses: m.CacheMisses.Load(),
		},
		Latency:    LatencyGroup{ExtractionMs: extract},
		UptimeSecs: time.Since(m.startTime).Seconds(),
	}
}

// --- JSON-serialisable snapshot types ---

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Runs       RunSnapshot   `json:"runs"`
	Chunks     ChunkSnapshot `json:"chunks"`
	Spans      SpanSnapshot  `json:"spans"`
	Cache      CacheSnapshot `json:"cache"`
	Latency    LatencyGroup  `json:"latency"`
	UptimeSecs float64       `json:"uptimeSecs"`
}

// RunSnapshot holds pipeline-run counters.
type RunSnapshot struct {
	Total    int64 `json:"total"`
	Parallel int64 `json:"parallel"`
	Failed   int64 `json:"failed"`
}

// ChunkSnapshot holds chunk dispatch counters.
type ChunkSnapshot struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// SpanSnapshot holds span volume by pipeline stage.
type SpanSnapshot struct {
	Detected  int64 `json:"detected"`
	Validated int64 `json:"validated"`
	Merged    int64 `json:"merged"`
	Redacted  int64 `json:"redacted"`
	Replaced  int64 `json:"replaced"`
}

// CacheSnapshot holds extraction cache effectiveness counters.
type CacheSnapshot struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// LatencyGroup groups the latency dimensions.
type LatencyGroup struct {
	ExtractionMs LatencySnapshot `json:"extractionMs"`
}

// LatencySnapshot is a min/mean/max summary for one latency dimension.
type LatencySnapshot struct {
	Count  int64   `json:"count"`
	MinMs  float64 `json:"minMs"`
	MeanMs float64 `json:"meanMs"`
	MaxMs  float64 `json:"maxMs"`
}

// --- internal accumulator ---

type latencyStats struct {
	count int64
	sum   float64
	min   float64
	max   float64
}

func (s *latencyStats) record(ms float64) {
	s.count++
	s.sum += ms
	if s.count == 1 || ms < s.min {
		s.min = ms
	}
	if ms > s.max {
		s.max = ms
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *latencyStats) snapshot() LatencySnapshot {
	if s.count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count:  s.count,
		MinMs:  round2(s.min),
		MeanMs: round2(s.sum / float64(s.count)),
		MaxMs:  round2(s.max),
	}
}
