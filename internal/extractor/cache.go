package extractor

import (
	"container/list"
	"context"
	"crypto/md5" // #nosec G501 -- cache key derivation, not cryptographic security
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"entity-cloak/internal/entity"
)

// ExtractFunc is the extraction call the cache fronts.
type ExtractFunc func(ctx context.Context, text string, labels []string) ([]entity.Span, error)

// Cache is a bounded LRU in front of an extraction call, keyed by text plus
// the sorted label set. Concurrent misses for the same key are collapsed
// into a single underlying invocation (singleflight), so statistics stay
// accurate and the labeler is never asked the same question twice at once.
// Entries live for the lifetime of the Cache; nothing is persisted.
type Cache struct {
	fn      ExtractFunc
	maxSize int

	mu      sync.Mutex
	entries map[string]*list.Element // key -> *lruEntry element
	order   *list.List               // front = most recently used

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry struct {
	key   string
	spans []entity.Span
}

// NewCache wraps fn with an LRU of at most maxSize entries.
func NewCache(fn ExtractFunc, maxSize int) *Cache {
	if maxSize < 1 {
		maxSize = 128
	}
	return &Cache{
		fn:      fn,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Extract returns the cached spans for (text, labels) or invokes the
// underlying extraction exactly once per key and caches its result.
// Errors are not cached.
func (c *Cache) Extract(ctx context.Context, text string, labels []string) ([]entity.Span, error) {
	key := cacheKey(text, labels)

	if spans, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return spans, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another flight may have populated the entry while we queued.
		if spans, ok := c.lookup(key); ok {
			return spans, nil
		}
		spans, err := c.fn(ctx, text, labels)
		if err != nil {
			return nil, err
		}
		c.insert(key, spans)
		return copySpans(spans), nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.Span), nil
}

func (c *Cache) lookup(key string) ([]entity.Span, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return copySpans(el.Value.(*lruEntry).spans), true
}

func (c *Cache) insert(key string, spans []entity.Span) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[key]; ok {
		c.order.MoveToFront(el)
		el.Value.(*lruEntry).spans = copySpans(spans)
		return
	}
	c.entries[key] = c.order.PushFront(&lruEntry{key: key, spans: copySpans(spans)})
	for len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).key)
	}
}

// Clear drops all entries and resets the hit/miss counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.order = list.New()
	c.mu.Unlock()
	c.hits.Store(0)
	c.misses.Store(0)
}

// CacheStats is a point-in-time view of cache effectiveness.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	Size    int     `json:"size"`
	MaxSize int     `json:"max_size"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	size := len(c.entries)
	c.mu.Unlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	s := CacheStats{Hits: hits, Misses: misses, Size: size, MaxSize: c.maxSize}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// cacheKey hashes text together with the sorted label set so label order
// does not fragment the cache.
func cacheKey(text string, labels []string) string {
	sorted := make([]string, len(labels))
	copy(sorted, labels)
	sort.Strings(sorted)
	h := md5.Sum([]byte(strings.Join(sorted, ",") + "\x00" + text)) // #nosec G401 -- cache key, not crypto
	return fmt.Sprintf("%x", h)
}

func copySpans(spans []entity.Span) []entity.Span {
	if spans == nil {
		return nil
	}
	out := make([]entity.Span, len(spans))
	copy(out, spans)
	return out
}
