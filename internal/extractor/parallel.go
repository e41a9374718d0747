package extractor

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"entity-cloak/internal/chunker"
	"entity-cloak/internal/entity"
	"entity-cloak/internal/labeler"
	"entity-cloak/internal/logger"
)

// Dispatcher fans labeling work out over word-aligned chunks and joins the
// results with chunk offsets reconciled back into original-text coordinates.
type Dispatcher struct {
	labeler labeler.Labeler
	workers int
	log     *logger.Logger
}

// NewDispatcher returns a dispatcher that runs at most workers concurrent
// labeling calls.
func NewDispatcher(l labeler.Labeler, workers int, log *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{labeler: l, workers: workers, log: log}
}

// Dispatch splits text into chunks of up to maxWords words and labels every
// chunk on a bounded worker pool. Each returned span's Start/End is shifted
// by its chunk's offset so all spans index into the original text. The call
// blocks until every chunk task has completed or failed (fork-join, not
// best-effort); a failing chunk is logged, counted in failed and excluded
// without aborting its siblings. Output is sorted by Start regardless of
// completion order.
func (d *Dispatcher) Dispatch(ctx context.Context, text string, labels []string, maxWords int, threshold float64) (spans []entity.Span, failed int, err error) {
	if strings.TrimSpace(text) == "" {
		return nil, 0, nil
	}
	labels = lowerLabels(labels)

	chunks := chunker.Split(text, maxWords)
	if err := chunker.Validate(chunks, text); err != nil {
		// A chunk that does not round-trip would corrupt every downstream
		// offset; this is a bug, not a recoverable condition.
		return nil, 0, err
	}
	stats := chunker.Summarize(chunks)
	d.log.Infof("dispatch", "%d chunks, %d workers", len(chunks), d.workers)
	d.log.Debugf("chunk_stats", "chars=%d words=%d sizes min=%d max=%d avg=%.0f",
		stats.TotalCharacters, stats.TotalWords, stats.MinChunkSize, stats.MaxChunkSize, stats.AvgChunkSize)

	results := make([][]entity.Span, len(chunks))
	errs := make([]error, len(chunks))

	sem := semaphore.NewWeighted(int64(d.workers))
	var wg sync.WaitGroup
	for i, c := range chunks {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		go func(i int, c chunker.Chunk) {
			defer wg.Done()
			defer sem.Release(1)
			found, err := d.labeler.Label(ctx, c.Text, labels, threshold)
			if err != nil {
				errs[i] = err
				return
			}
			adjusted := make([]entity.Span, 0, len(found))
			for _, s := range found {
				s.Start += c.Offset
				s.End += c.Offset
				adjusted = append(adjusted, s)
			}
			results[i] = adjusted
		}(i, c)
	}
	wg.Wait()

	var all []entity.Span
	for i := range chunks {
		if errs[i] != nil {
			failed++
			d.log.Errorf("chunk_failed", "chunk %d at offset %d: %v", i, chunks[i].Offset, errs[i])
			continue
		}
		all = append(all, results[i]...)
	}
	if failed > 0 {
		d.log.Warnf("dispatch", "%d/%d chunks failed", failed, len(chunks))
	}

	entity.SortByStart(all)
	d.log.Infof("dispatch", "parallel extraction found %d spans", len(all))
	return all, failed, nil
}
