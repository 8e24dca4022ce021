// File: internal/platform/cache/cache.go

// Package cache provides the key/value cache port used as a read accelerator.
// The backing store stays the source of truth; every caller is expected to
// treat cache failures as misses.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Cache is the minimal key/value contract the application depends on.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	// Incr atomically increments the integer stored at key, creating it at 1
	// if absent, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
}
