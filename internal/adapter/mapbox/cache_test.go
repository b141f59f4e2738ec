package mapbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes for cache tests ---

type countingGeocoder struct {
	calls  int
	result domain.GeocodingResult
	err    error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	m.calls++
	return m.result, m.err
}

type mapRemote struct {
	data    map[string]domain.GeocodingResult
	failGet bool
	sets    int
}

func newMapRemote() *mapRemote {
	return &mapRemote{data: make(map[string]domain.GeocodingResult)}
}

func (m *mapRemote) Get(_ context.Context, key string) (domain.GeocodingResult, bool, error) {
	if m.failGet {
		return domain.GeocodingResult{}, false, errors.New("connection refused")
	}
	r, ok := m.data[key]
	return r, ok, nil
}

func (m *mapRemote) Set(_ context.Context, key string, r domain.GeocodingResult) error {
	m.sets++
	m.data[key] = r
	return nil
}

var austin = domain.GeocodingResult{Lat: 30.27, Lng: -97.74, FormattedAddress: "100 Congress Ave, Austin, Texas 78701", Confidence: 0.9}

// --- CachedGeocoder tests ---

func TestCachedGeocoder_MemoryHit(t *testing.T) {
	inner := &countingGeocoder{result: austin}
	m := testMetrics()
	cached := NewCachedGeocoder(inner, 10, m, discardLogger())

	r1, err := cached.ForwardGeocode(context.Background(), "100 Congress Ave, Austin, TX")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "  100 congress ave,   AUSTIN, tx ")
	require.NoError(t, err)

	assert.Equal(t, austin, r1)
	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("memory", "miss")))
}

func TestCachedGeocoder_EmptyResultNotCached(t *testing.T) {
	inner := &countingGeocoder{}
	cached := NewCachedGeocoder(inner, 10, testMetrics(), discardLogger())

	_, err := cached.ForwardGeocode(context.Background(), "nowhere")
	require.NoError(t, err)
	_, err = cached.ForwardGeocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedGeocoder_ErrorPassesThrough(t *testing.T) {
	inner := &countingGeocoder{err: errors.New("boom")}
	cached := NewCachedGeocoder(inner, 10, testMetrics(), discardLogger())

	_, err := cached.ForwardGeocode(context.Background(), "12 Main St")
	require.Error(t, err)
	assert.Zero(t, cached.cache.len())
}

func TestCachedGeocoder_RemoteTier(t *testing.T) {
	remote := newMapRemote()
	remote.data[cacheKey("12 Main St")] = austin
	inner := &countingGeocoder{}
	m := testMetrics()
	cached := NewCachedGeocoder(inner, 10, m, discardLogger()).WithRemote(remote)

	r, err := cached.ForwardGeocode(context.Background(), "12 Main St")
	require.NoError(t, err)
	assert.Equal(t, austin, r)
	assert.Zero(t, inner.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("redis", "hit")))

	// Promoted into memory.
	_, err = cached.ForwardGeocode(context.Background(), "12 Main St")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeCache.WithLabelValues("memory", "hit")))
}

func TestCachedGeocoder_RemoteWriteThrough(t *testing.T) {
	remote := newMapRemote()
	inner := &countingGeocoder{result: austin}
	cached := NewCachedGeocoder(inner, 10, testMetrics(), discardLogger()).WithRemote(remote)

	_, err := cached.ForwardGeocode(context.Background(), "100 Congress Ave")
	require.NoError(t, err)
	assert.Equal(t, 1, remote.sets)
	assert.Equal(t, austin, remote.data[cacheKey("100 Congress Ave")])
}

func TestCachedGeocoder_RemoteFailureFallsBack(t *testing.T) {
	remote := newMapRemote()
	remote.failGet = true
	inner := &countingGeocoder{result: austin}
	cached := NewCachedGeocoder(inner, 10, testMetrics(), discardLogger()).WithRemote(remote)

	r, err := cached.ForwardGeocode(context.Background(), "100 Congress Ave")
	require.NoError(t, err)
	assert.Equal(t, austin, r)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedGeocoder_UnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	inner := &countingGeocoder{result: austin}
	cached := NewCachedGeocoder(inner, 10, testMetrics(), discardLogger()).
		WithRemote(NewRedisCache(client, time.Minute))

	r, err := cached.ForwardGeocode(context.Background(), "100 Congress Ave")
	require.NoError(t, err)
	assert.Equal(t, austin, r)
	assert.Equal(t, 1, inner.calls)
}

func TestOpenRedis_EmptyAddr(t *testing.T) {
	assert.Nil(t, OpenRedis(""))
}

// --- LRU tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[int](2)
	c.put("a", 1)

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[int](2)
	c.put("a", 1)
	c.put("b", 2)
	c.put("c", 3)

	_, ok := c.get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	assert.Equal(t, 2, c.len())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[int](2)
	c.put("a", 1)
	c.put("b", 2)
	c.get("a")
	c.put("c", 3)

	_, ok := c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[int](2)
	c.put("a", 1)
	c.put("a", 10)

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 1, c.len())
}
