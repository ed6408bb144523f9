package cachemanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zjrosen/gerritnav/internal/log"
)

const scanBatch = 100

// RedisCacheManager implements CacheManager on a Redis server. Values are
// stored as JSON under "<prefix><key>", so several caches can share one
// database.
type RedisCacheManager[K ~string, V any] struct {
	client *redis.Client
	prefix string
}

var _ CacheManager[string, int] = (*RedisCacheManager[string, int])(nil)

// NewRedisCacheManager connects to redisURL (redis://host:port/db) and
// checks the connection.
func NewRedisCacheManager[K ~string, V any](ctx context.Context, redisURL, prefix string) (*RedisCacheManager[K, V], error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheManagerWithClient[K, V](client, prefix), nil
}

// NewRedisCacheManagerWithClient wraps an existing client.
func NewRedisCacheManagerWithClient[K ~string, V any](client *redis.Client, prefix string) *RedisCacheManager[K, V] {
	return &RedisCacheManager[K, V]{client: client, prefix: prefix}
}

func (c *RedisCacheManager[K, V]) key(k K) string {
	return c.prefix + string(k)
}

func (c *RedisCacheManager[K, V]) decode(key K, raw string) (V, bool) {
	var v V
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Error(log.CatCache, "cannot decode cached value", "prefix", c.prefix, "key", key, "error", err)
		return v, false
	}
	return v, true
}

// Get retrieves an item from the cache by its key
func (c *RedisCacheManager[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V

	raw, err := c.client.Get(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		log.ErrorErr(log.CatCache, "redis get failed", err, "key", key)
		return zero, false
	}

	v, ok := c.decode(key, raw)
	if ok {
		log.Debug(log.CatCache, "cache hit", "prefix", c.prefix, "key", key)
	}
	return v, ok
}

// GetWithRefresh retrieves an item and extends its ttl.
func (c *RedisCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	v, ok := c.Get(ctx, key)
	if !ok {
		return v, false
	}
	if err := c.client.Expire(ctx, c.key(key), ttl).Err(); err != nil {
		log.ErrorErr(log.CatCache, "redis expire failed", err, "key", key)
	}
	return v, true
}

// Set stores value as JSON. A failed write is logged; the cache is best
// effort.
func (c *RedisCacheManager[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		log.ErrorErr(log.CatCache, "cannot encode cache value", err, "key", key)
		return
	}
	if err := c.client.Set(ctx, c.key(key), data, ttl).Err(); err != nil {
		log.ErrorErr(log.CatCache, "redis set failed", err, "key", key)
	}
}

// Delete removes keys.
func (c *RedisCacheManager[K, V]) Delete(ctx context.Context, keys ...K) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("delete cache keys: %w", err)
	}
	return nil
}

// Flush removes every key under the prefix. Other caches in the same
// database are left alone.
func (c *RedisCacheManager[K, V]) Flush(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", scanBatch).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanBatch {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("flush cache: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cache keys: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("flush cache: %w", err)
		}
	}
	return nil
}

// Ping checks that Redis is reachable.
func (c *RedisCacheManager[K, V]) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *RedisCacheManager[K, V]) Close() error {
	return c.client.Close()
}
