package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/listing-map-sync/internal/domain"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "listing-map:geocode:"

// RedisCache stores geocoding results in Redis as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// OpenRedis returns nil when addr is empty.
func OpenRedis(addr string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr})
}

// NewRedisCache wraps client. A non-positive ttl defaults to one hour.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string) (domain.GeocodingResult, bool, error) {
	s, err := r.client.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.GeocodingResult{}, false, nil
	}
	if err != nil {
		return domain.GeocodingResult{}, false, fmt.Errorf("redis get: %w", err)
	}
	var result domain.GeocodingResult
	if err := json.Unmarshal([]byte(s), &result); err != nil {
		return domain.GeocodingResult{}, false, fmt.Errorf("decode cached result: %w", err)
	}
	return result, result.Found(), nil
}

func (r *RedisCache) Set(ctx context.Context, key string, result domain.GeocodingResult) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode cached result: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+key, b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
