// Package cachemanager provides typed key/value caches with per-entry TTLs,
// backed either by process memory or by Redis.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed cache. Misses, expired entries and entries that
// cannot be decoded as V all report ok=false.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}
