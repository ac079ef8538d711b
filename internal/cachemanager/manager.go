// Package cachemanager keeps short-lived values that outlive a single
// connection, such as the catalogs last seen on each server.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a TTL keyed store.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
}
