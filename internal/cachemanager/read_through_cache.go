package cachemanager

import (
	"context"
	"time"

	"github.com/zjrosen/gerritnav/internal/log"
)

// LoadFunc produces the value for input on a cache miss.
type LoadFunc[V any, I any] func(ctx context.Context, input I) (V, error)

// ReadThroughCache fronts a LoadFunc with a CacheManager. Successful loads
// are stored; errors are returned and never cached.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache  CacheManager[K, V]
	load   LoadFunc[V, I]
	bypass bool
}

// NewReadThroughCache creates a read-through cache. With bypass set every
// call goes straight to load.
func NewReadThroughCache[K ~string, V any, I any](cache CacheManager[K, V], load LoadFunc[V, I], bypass bool) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:  cache,
		load:   load,
		bypass: bypass,
	}
}

// Get returns the cached value for key, loading and storing it on a miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.load(ctx, input)
	}

	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}
	return r.fill(ctx, key, input, ttl)
}

// GetWithRefresh is Get, but a hit also extends the entry's ttl.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.load(ctx, input)
	}

	if value, ok := r.cache.GetWithRefresh(ctx, key, ttl); ok {
		return value, nil
	}
	return r.fill(ctx, key, input, ttl)
}

func (r *ReadThroughCache[K, V, I]) fill(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	value, err := r.load(ctx, input)
	if err != nil {
		return value, err
	}

	log.Debug(log.CatCache, "cache fill", "key", key, "ttl", ttl)
	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}

// Invalidate drops key so the next Get loads it again.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, key K) error {
	return r.cache.Delete(ctx, key)
}
