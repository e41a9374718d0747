package extractor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"entity-cloak/internal/entity"
)

func countingExtract(calls *atomic.Int64) ExtractFunc {
	return func(_ context.Context, text string, labels []string) ([]entity.Span, error) {
		calls.Add(1)
		return []entity.Span{{Label: "person", Text: text, Start: 0, End: len(text), Score: 0.9}}, nil
	}
}

func TestCacheHitAvoidsSecondCall(t *testing.T) {
	var calls atomic.Int64
	c := NewCache(countingExtract(&calls), 8)
	ctx := context.Background()

	first, err := c.Extract(ctx, "John Smith", []string{"person"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	second, err := c.Extract(ctx, "John Smith", []string{"person"})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("underlying calls: got %d, want 1", calls.Load())
	}
	if len(first) != 1 || len(second) != 1 || first[0] != second[0] {
		t.Errorf("results differ: %+v vs %+v", first, second)
	}

	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Errorf("stats: %+v", s)
	}
}

func TestCacheKeyIgnoresLabelOrder(t *testing.T) {
	var calls atomic.Int64
	c := NewCache(countingExtract(&calls), 8)
	ctx := context.Background()

	if _, err := c.Extract(ctx, "text", []string{"person", "location"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Extract(ctx, "text", []string{"location", "person"}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 1 {
		t.Errorf("label order fragmented the cache: %d calls", calls.Load())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	var calls atomic.Int64
	c := NewCache(countingExtract(&calls), 2)
	ctx := context.Background()
	labels := []string{"person"}

	mustExtract := func(text string) {
		t.Helper()
		if _, err := c.Extract(ctx, text, labels); err != nil {
			t.Fatal(err)
		}
	}

	mustExtract("a")
	mustExtract("b")
	mustExtract("a") // refresh "a"
	mustExtract("c") // evicts "b"

	calls.Store(0)
	mustExtract("a")
	if calls.Load() != 0 {
		t.Error("entry 'a' should still be cached")
	}
	mustExtract("b")
	if calls.Load() != 1 {
		t.Error("entry 'b' should have been evicted")
	}
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	var calls atomic.Int64
	started := make(chan struct{})
	slow := func(_ context.Context, text string, _ []string) ([]entity.Span, error) {
		calls.Add(1)
		<-started
		return []entity.Span{{Label: "x", Text: text, Start: 0, End: len(text), Score: 1}}, nil
	}
	c := NewCache(slow, 8)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Extract(context.Background(), "same key", []string{"x"}); err != nil {
				t.Error(err)
			}
		}()
	}
	close(started)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("underlying calls: got %d, want 1 (singleflight)", got)
	}
}

func TestCacheErrorsNotCached(t *testing.T) {
	var calls atomic.Int64
	failing := func(_ context.Context, _ string, _ []string) ([]entity.Span, error) {
		calls.Add(1)
		return nil, errors.New("down")
	}
	c := NewCache(failing, 8)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := c.Extract(ctx, "t", []string{"x"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if calls.Load() != 2 {
		t.Errorf("errors must not be cached: %d calls", calls.Load())
	}
}

func TestCacheClear(t *testing.T) {
	var calls atomic.Int64
	c := NewCache(countingExtract(&calls), 8)
	ctx := context.Background()

	if _, err := c.Extract(ctx, "t", []string{"x"}); err != nil {
		t.Fatal(err)
	}
	c.Clear()
	s := c.Stats()
	if s.Size != 0 || s.Hits != 0 || s.Misses != 0 {
		t.Errorf("stats after clear: %+v", s)
	}
	if _, err := c.Extract(ctx, "t", []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("cleared entry should be re-fetched: %d calls", calls.Load())
	}
}
