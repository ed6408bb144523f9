package lookup

import (
	"context"
	"strconv"
	"time"

	"github.com/zjrosen/gerritnav/internal/cachemanager"
)

// DefaultCacheTTL is how long a resolved repository is remembered. A
// change never moves between repositories, so entries can live long.
const DefaultCacheTTL = 24 * time.Hour

// Cached remembers what the wrapped resolver returns. Failures, including
// not-found answers, are not cached.
type Cached struct {
	cache   cachemanager.CacheManager[string, string]
	through *cachemanager.ReadThroughCache[string, string, int]
	ttl     time.Duration
}

// NewCached wraps next with cache. A ttl of zero means DefaultCacheTTL.
func NewCached(next Resolver, cache cachemanager.CacheManager[string, string], ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		cache:   cache,
		through: cachemanager.NewReadThroughCache[string, string, int](cache, next.ProjectFor, false),
		ttl:     ttl,
	}
}

func cacheKey(changeNum int) string {
	return "change:" + strconv.Itoa(changeNum)
}

// ProjectFor implements Resolver.
func (c *Cached) ProjectFor(ctx context.Context, changeNum int) (string, error) {
	return c.through.Get(ctx, cacheKey(changeNum), changeNum, c.ttl)
}

// Remember stores a repository learned elsewhere, such as from a URL that
// named it.
func (c *Cached) Remember(ctx context.Context, changeNum int, project string) {
	c.cache.Set(ctx, cacheKey(changeNum), project, c.ttl)
}

// Forget drops a cached entry.
func (c *Cached) Forget(ctx context.Context, changeNum int) error {
	return c.through.Invalidate(ctx, cacheKey(changeNum))
}
