package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// CachedFetcher wraps a HeadlineFetcher with an in-memory LRU cache whose
// entries expire after a TTL. Concurrent misses for the same key share one
// upstream fetch.
type CachedFetcher struct {
	inner       domain.HeadlineFetcher
	cache       *lruCache
	group       singleflight.Group
	loadTimeout time.Duration
	metrics     *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a fetcher. A shared
// upstream fetch outlives the caller that started it and is bounded by
// loadTimeout instead; loadTimeout <= 0 leaves it unbounded. A nil clock uses
// real time.
func NewCachedFetcher(inner domain.HeadlineFetcher, maxEntries int, ttl, loadTimeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *CachedFetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CachedFetcher{
		inner:       inner,
		cache:       newLRUCache(maxEntries, ttl, clock),
		loadTimeout: loadTimeout,
		metrics:     metrics,
	}
}

func (c *CachedFetcher) FetchHeadlines(ctx context.Context, feedURL string, limit int) []domain.Headline {
	if feedURL == "" || limit <= 0 {
		return []domain.Headline{}
	}

	key := cacheKey(feedURL, limit)
	if headlines, ok := c.cache.get(key); ok {
		c.metrics.FeedCache.WithLabelValues("hit").Inc()
		return headlines
	}
	c.metrics.FeedCache.WithLabelValues("miss").Inc()

	v, _, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, feedURL, limit), nil
	})
	return clone(v.([]domain.Headline))
}

// Refresh fetches feedURL upstream regardless of cached state and stores the
// result. It returns the number of headlines fetched.
func (c *CachedFetcher) Refresh(ctx context.Context, feedURL string, limit int) int {
	key := cacheKey(feedURL, limit)
	v, _, _ := c.group.Do(key, func() (any, error) {
		return c.load(ctx, key, feedURL, limit), nil
	})
	return len(v.([]domain.Headline))
}

// load runs once per key for every waiting caller, so the first caller's
// cancellation must not cut it short.
func (c *CachedFetcher) load(ctx context.Context, key, feedURL string, limit int) []domain.Headline {
	ctx = context.WithoutCancel(ctx)
	if c.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.loadTimeout)
		defer cancel()
	}
	headlines := c.inner.FetchHeadlines(ctx, feedURL, limit)
	// Only cache non-empty results so a failed fetch can be retried.
	if len(headlines) > 0 {
		c.cache.put(key, headlines)
	}
	return headlines
}

func cacheKey(feedURL string, limit int) string {
	return fmt.Sprintf("%s|%d", feedURL, limit)
}

func clone(h []domain.Headline) []domain.Headline {
	out := make([]domain.Headline, len(h))
	copy(out, h)
	return out
}

// lruCache is a thread-safe LRU cache for headline lists with per-entry expiry.
type lruCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key       string
	value     []domain.Headline
	expiresAt time.Time
	prev      *entry
	next      *entry
}

func newLRUCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Headline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.remove(e)
		return nil, false
	}
	c.moveToFront(e)
	return clone(e.value), true
}

func (c *lruCache) put(key string, value []domain.Headline) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = clone(value)
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: clone(value), expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
