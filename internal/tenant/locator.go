package tenant

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"github.com/edulane/edulane/internal/core"
)

// slugPattern matches lowercase DNS-label style identifiers, the only slug
// syntax provisioning ever emits.
var slugPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?$`)

// CacheStats is reported to the operational metrics collector.
type CacheStats interface {
	TenantCacheHit()
	TenantCacheMiss()
}

// Locator maps a request slug to exactly one tenant. Lookups go through a
// short-TTL in-process cache so the guard can re-resolve on every request
// without hammering the registry. There is no default tenant: an unknown or
// malformed slug always fails.
type Locator struct {
	registry Registry
	cache    *ristretto.Cache[string, *core.Tenant]
	ttl      time.Duration
	stats    CacheStats
	logger   *zap.Logger
}

func NewLocator(registry Registry, maxEntries int64, ttl time.Duration, stats CacheStats, logger *zap.Logger) (*Locator, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *core.Tenant]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("tenant cache: %w", err)
	}

	return &Locator{
		registry: registry,
		cache:    cache,
		ttl:      ttl,
		stats:    stats,
		logger:   logger,
	}, nil
}

// Resolve returns the tenant for slug or core.ErrInvalidSlug /
// core.ErrTenantNotFound. The cache is advisory; registry data is the single
// source of truth.
func (l *Locator) Resolve(ctx context.Context, slug string) (*core.Tenant, error) {
	if !slugPattern.MatchString(slug) {
		return nil, core.ErrInvalidSlug
	}

	if t, ok := l.cache.Get(slug); ok {
		if l.stats != nil {
			l.stats.TenantCacheHit()
		}
		return t, nil
	}
	if l.stats != nil {
		l.stats.TenantCacheMiss()
	}

	t, err := l.registry.GetTenantBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	l.cache.SetWithTTL(slug, t, 1, l.ttl)
	return t, nil
}

// Wait flushes pending cache writes. Used by tests.
func (l *Locator) Wait() {
	l.cache.Wait()
}

func (l *Locator) Close() {
	l.cache.Close()
}
