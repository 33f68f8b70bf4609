package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisCommander interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCacheConfig configures the Redis-backed cache.
type RedisCacheConfig struct {
	Namespace string
	Freshness time.Duration
}

// RedisCache stores cache entries in Redis so multiple replicas share one
// freshness window. Entries expire server-side at the window boundary.
type RedisCache struct {
	client    redisCommander
	closeFn   func() error
	namespace string
	freshness time.Duration
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(client redis.UniversalClient, cfg RedisCacheConfig) *RedisCache {
	closeFn := func() error { return nil }
	if client != nil {
		closeFn = client.Close
	}
	return newRedisCacheFromCommander(client, closeFn, cfg)
}

func newRedisCacheFromCommander(client redisCommander, closeFn func() error, cfg RedisCacheConfig) *RedisCache {
	namespace := strings.TrimSpace(cfg.Namespace)
	if namespace == "" {
		namespace = "gitpulse"
	}
	freshness := cfg.Freshness
	if freshness <= 0 {
		freshness = DefaultFreshness
	}
	if closeFn == nil {
		closeFn = func() error { return nil }
	}

	return &RedisCache{
		client:    client,
		closeFn:   closeFn,
		namespace: namespace,
		freshness: freshness,
	}
}

// Close closes the underlying Redis client.
func (c *RedisCache) Close() error {
	if c == nil || c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}

type redisEnvelope struct {
	Data     json.RawMessage `json:"data"`
	StoredAt time.Time       `json:"storedAt"`
}

// Get returns the entry for key. Expiry is enforced by the Redis TTL, so a
// present key is by construction fresh.
func (c *RedisCache) Get(ctx context.Context, key Key) (Entry, bool, error) {
	if c == nil || c.client == nil {
		return Entry{}, false, fmt.Errorf("redis cache is not initialized")
	}
	if err := key.Validate(); err != nil {
		return Entry{}, false, err
	}

	raw, err := c.client.Get(ctx, c.prefixed(key)).Result()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("read cache entry %q: %w", key.String(), err)
	}

	var envelope redisEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return Entry{}, false, fmt.Errorf("decode cache entry %q: %w", key.String(), err)
	}
	return Entry{Data: envelope.Data, StoredAt: envelope.StoredAt}, true, nil
}

// Set stores one whole value with the freshness window as its TTL.
func (c *RedisCache) Set(ctx context.Context, key Key, data json.RawMessage) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("redis cache is not initialized")
	}
	if err := key.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(redisEnvelope{Data: data, StoredAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key.String(), err)
	}
	if err := c.client.Set(ctx, c.prefixed(key), payload, c.freshness).Err(); err != nil {
		return fmt.Errorf("write cache entry %q: %w", key.String(), err)
	}
	return nil
}

func (c *RedisCache) prefixed(key Key) string {
	return c.namespace + ":cache:" + key.String()
}
