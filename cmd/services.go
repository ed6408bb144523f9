package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zjrosen/gerritnav/internal/cachemanager"
	"github.com/zjrosen/gerritnav/internal/config"
	"github.com/zjrosen/gerritnav/internal/history"
	"github.com/zjrosen/gerritnav/internal/log"
	"github.com/zjrosen/gerritnav/internal/lookup"
	"github.com/zjrosen/gerritnav/internal/navigation"
	"github.com/zjrosen/gerritnav/internal/router"
	"github.com/zjrosen/gerritnav/internal/tracing"
	"github.com/zjrosen/gerritnav/internal/viewmodel"
)

const (
	redisKeyPrefix       = "gerritnav:lookup:"
	cacheCleanupInterval = 10 * time.Minute
	shutdownTimeout      = 5 * time.Second
)

// services is the object graph behind the navigation commands.
type services struct {
	router    *router.Router
	models    *viewmodel.Models
	static    *lookup.Static
	resolver  lookup.Resolver
	navigator *navigation.Navigator
	history   *history.DB
	tracer    *tracing.Provider
	closers   []func() error
}

func newRouter(cfg config.Config) *router.Router {
	return router.New(router.Options{BasePath: cfg.BasePath, LoggedIn: cfg.LoggedIn})
}

// buildResolver assembles pinned entries, then the cached server lookup
// when a server is configured.
func buildResolver(ctx context.Context, cfg config.LookupConfig) (*lookup.Static, lookup.Resolver, []func() error, error) {
	static := lookup.NewStatic(cfg.Projects)
	if cfg.GerritURL == "" {
		return static, static, nil, nil
	}

	opts := []lookup.ClientOption{lookup.WithHTTPClient(&http.Client{Timeout: cfg.Timeout})}
	if cfg.Username != "" {
		opts = append(opts, lookup.WithBasicAuth(cfg.Username, cfg.Password))
	}
	client := lookup.NewClient(cfg.GerritURL, opts...)

	ttl := cfg.Cache.TTL
	if ttl == 0 {
		ttl = lookup.DefaultCacheTTL
	}

	var closers []func() error
	var remote lookup.Resolver
	switch cfg.Cache.Backend {
	case config.CacheNone:
		remote = client
	case config.CacheRedis:
		cache, err := cachemanager.NewRedisCacheManager[string, string](ctx, cfg.Cache.RedisURL, redisKeyPrefix)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting lookup cache: %w", err)
		}
		closers = append(closers, cache.Close)
		remote = lookup.NewCached(client, cache, ttl)
	default:
		cache := cachemanager.NewInMemoryCacheManager[string, string]("lookup", ttl, cacheCleanupInterval)
		remote = lookup.NewCached(client, cache, ttl)
	}

	log.Debug(log.CatLookup, "Lookup configured", "server", cfg.GerritURL, "cache", cfg.Cache.Backend, "pinned", len(cfg.Projects))
	return static, lookup.Chain{static, remote}, closers, nil
}

// newServices wires router, stores, lookup, history and tracing from cfg.
func newServices(ctx context.Context, cfg config.Config) (*services, error) {
	s := &services{
		router: newRouter(cfg),
		models: viewmodel.NewModels(),
	}

	static, resolver, closers, err := buildResolver(ctx, cfg.Lookup)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.static, s.resolver = static, resolver
	s.closers = append(s.closers, closers...)

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	s.tracer = provider

	opts := []navigation.Option{
		navigation.WithResolver(resolver),
		navigation.WithTracer(provider.Tracer()),
		navigation.WithMaxRedirects(cfg.MaxRedirects),
	}
	if cfg.History.Enabled {
		db, err := history.NewDB(cfg.History.Path)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("opening history: %w", err)
		}
		s.history = db
		opts = append(opts, navigation.WithRecorder(db.Repository()))
	}

	s.navigator = navigation.New(s.router, s.models, opts...)
	return s, nil
}

// apply swaps in the parts of cfg that can change while running: the
// router options and the pinned lookup entries.
func (s *services) apply(cfg config.Config) {
	for num, project := range cfg.Lookup.Projects {
		s.static.Set(num, project)
	}
	s.router = newRouter(cfg)
	s.navigator.SetRouter(s.router)
}

// Close releases everything newServices opened.
func (s *services) Close() {
	if s.navigator != nil {
		s.navigator.Close()
	}
	if s.models != nil {
		s.models.Close()
	}
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.tracer.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Tracing shutdown failed", err)
		}
		cancel()
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			log.ErrorErr(log.CatHistory, "Closing history failed", err)
		}
	}
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.ErrorErr(log.CatCache, "Closing cache failed", err)
		}
	}
}
