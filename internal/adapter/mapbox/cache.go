package mapbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/couchcryptid/vegwatch-service/internal/observability"
	"golang.org/x/sync/singleflight"
)

// CachedSearcher wraps a PlaceSearcher with an in-memory LRU cache. Concurrent
// lookups of the same query share one upstream call.
type CachedSearcher struct {
	inner   domain.PlaceSearcher
	cache   *lruCache
	group   singleflight.Group
	metrics *observability.Metrics

	// flightTimeout bounds a shared upstream lookup.
	flightTimeout time.Duration
}

const defaultFlightTimeout = 10 * time.Second

// NewCachedSearcher creates a cache decorator around a place searcher.
func NewCachedSearcher(inner domain.PlaceSearcher, maxEntries int, metrics *observability.Metrics) *CachedSearcher {
	return &CachedSearcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,

		flightTimeout: defaultFlightTimeout,
	}
}

func (c *CachedSearcher) SearchPlaces(ctx context.Context, query string) ([]domain.Place, error) {
	key := cacheKey(query)
	if places, ok := c.cache.get(key); ok {
		c.metrics.SearchCache.WithLabelValues("hit").Inc()
		return places, nil
	}
	c.metrics.SearchCache.WithLabelValues("miss").Inc()

	// The shared lookup outlives any single caller: a caller that gives up
	// must not cancel the lookup for others waiting on the same key.
	ch := c.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()

		places, err := c.inner.SearchPlaces(flightCtx, query)
		if err != nil {
			return nil, err
		}
		// Only cache non-empty results so transient "not found" responses can be retried.
		if len(places) > 0 {
			c.cache.put(key, places)
		}
		return places, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Place), nil
	}
}

// cacheKey folds case and whitespace so "Ferrara " and "ferrara" share an entry.
func cacheKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// lruCache is a simple thread-safe LRU cache for place search results.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.Place
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Place, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Place) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
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
