package cachemanager

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/entwined/remote/internal/model"
)

// Host is a catalog cache key.
type Host string

// HostKey normalizes a hostname for use as a key.
func HostKey(hostname string) Host {
	return Host(strings.ToLower(strings.TrimSpace(hostname)))
}

// Catalog is the pattern and effect lists a server last reported.
type Catalog struct {
	Patterns []model.Pattern
	Effects  []model.Effect
	SeenAt   time.Time
}

// Empty reports whether nothing was recorded.
func (c Catalog) Empty() bool {
	return len(c.Patterns) == 0 && len(c.Effects) == 0
}

// CatalogStore remembers each server's catalog after a full sync so it can
// be shown while reconnecting or after switching hosts.
type CatalogStore struct {
	cache CacheManager[Host, Catalog]
	ttl   time.Duration
}

// NewCatalogStore wraps cache. A ttl of zero uses the cache default.
func NewCatalogStore(cache CacheManager[Host, Catalog], ttl time.Duration) *CatalogStore {
	if ttl <= 0 {
		ttl = DefaultExpiration
	}
	return &CatalogStore{cache: cache, ttl: ttl}
}

// NewMemoryCatalogStore creates a store over an in-memory cache.
func NewMemoryCatalogStore(ttl time.Duration) *CatalogStore {
	return NewCatalogStore(NewInMemoryCacheManager[Host, Catalog]("catalog", ttl, DefaultCleanupInterval), ttl)
}

// Remember records the catalogs in s for hostname.
func (s *CatalogStore) Remember(ctx context.Context, hostname string, snap model.Snapshot, at time.Time) {
	c := Catalog{
		Patterns: slices.Clone(snap.Patterns()),
		Effects:  slices.Clone(snap.ColorEffects),
		SeenAt:   at,
	}
	if c.Empty() {
		return
	}
	s.cache.Set(ctx, HostKey(hostname), c, s.ttl)
}

// Lookup returns the catalog last seen on hostname and extends its life.
func (s *CatalogStore) Lookup(ctx context.Context, hostname string) (Catalog, bool) {
	return s.cache.GetWithRefresh(ctx, HostKey(hostname), s.ttl)
}

// Forget drops hostname's catalog.
func (s *CatalogStore) Forget(ctx context.Context, hostname string) {
	_ = s.cache.Delete(ctx, HostKey(hostname))
}
