package mapbox

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/couchcryptid/listing-map-sync/internal/observability"
)

// remoteCache is a shared second cache tier, such as RedisCache.
type remoteCache interface {
	Get(ctx context.Context, key string) (domain.GeocodingResult, bool, error)
	Set(ctx context.Context, key string, result domain.GeocodingResult) error
}

// CachedGeocoder wraps a Geocoder with an in-memory LRU cache and an optional
// remote tier shared between replicas.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *lruCache[domain.GeocodingResult]
	remote  remoteCache
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCachedGeocoder creates a cache decorator around a geocoder.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics, logger *slog.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newLRUCache[domain.GeocodingResult](maxEntries),
		metrics: metrics,
		logger:  logger,
	}
}

// WithRemote adds a second cache tier consulted after the memory tier.
func (c *CachedGeocoder) WithRemote(remote remoteCache) *CachedGeocoder {
	c.remote = remote
	return c
}

// cacheKey normalizes case and whitespace so trivially different spellings
// of one address share an entry.
func cacheKey(address string) string {
	return "fwd:" + strings.Join(strings.Fields(strings.ToLower(address)), " ")
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	key := cacheKey(address)
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("memory", "hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("memory", "miss").Inc()

	if result, ok := c.getRemote(ctx, key); ok {
		c.cache.put(key, result)
		return result, nil
	}

	result, err := c.inner.ForwardGeocode(ctx, address)
	if err != nil {
		return result, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if result.Found() {
		c.cache.put(key, result)
		c.setRemote(ctx, key, result)
	}
	return result, nil
}

// getRemote treats remote failures as misses.
func (c *CachedGeocoder) getRemote(ctx context.Context, key string) (domain.GeocodingResult, bool) {
	if c.remote == nil {
		return domain.GeocodingResult{}, false
	}
	result, ok, err := c.remote.Get(ctx, key)
	if err != nil {
		c.logger.Warn("remote geocode cache read failed", "key", key, "error", err)
	}
	if !ok || err != nil {
		c.metrics.GeocodeCache.WithLabelValues("redis", "miss").Inc()
		return domain.GeocodingResult{}, false
	}
	c.metrics.GeocodeCache.WithLabelValues("redis", "hit").Inc()
	return result, true
}

func (c *CachedGeocoder) setRemote(ctx context.Context, key string, result domain.GeocodingResult) {
	if c.remote == nil {
		return
	}
	if err := c.remote.Set(ctx, key, result); err != nil {
		c.logger.Warn("remote geocode cache write failed", "key", key, "error", err)
	}
}

// lruCache is a simple thread-safe LRU cache.
type lruCache[V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry[V]
	head       *entry[V] // most recently used
	tail       *entry[V] // least recently used
}

type entry[V any] struct {
	key   string
	value V
	prev  *entry[V]
	next  *entry[V]
}

func newLRUCache[V any](maxEntries int) *lruCache[V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &lruCache[V]{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry[V]),
	}
}

func (c *lruCache[V]) get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache[V]) put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache[V]) addToFront(e *entry[V]) {
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

func (c *lruCache[V]) remove(e *entry[V]) {
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

func (c *lruCache[V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
