// File: internal/category/cache.go
package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	platformcache "catalog_hierarchy_backend/internal/platform/cache"

	"go.uber.org/zap"
)

const (
	// CacheNamespace groups every category read under one version counter.
	CacheNamespace = "categories"
	// versionKeyPrefix prefixes the per-namespace version counter keys.
	versionKeyPrefix = "cache:version:"
	// defaultVersion is what readers assume when the counter is absent or
	// the cache backend is unreachable.
	defaultVersion int64 = 1
)

// CoherenceManager keys every cached read by a per-namespace version and
// invalidates all of them at once by bumping that version. Deleting each
// derived key individually would be unbounded in the number of distinct
// query shapes; one atomic increment retires them all.
//
// The cache is strictly an accelerator: every failure is logged and treated
// as a miss, never surfaced to the caller.
type CoherenceManager struct {
	cache  platformcache.Cache
	logger *zap.Logger
}

// NewCoherenceManager creates a coherence manager over the given cache port.
func NewCoherenceManager(cache platformcache.Cache, logger *zap.Logger) *CoherenceManager {
	return &CoherenceManager{cache: cache, logger: logger}
}

// Version returns the current cache version for a namespace. A missing
// counter reads as the default and is left absent: writing it here could
// overwrite a concurrent bump with an older value, and Bump already
// increments past the default when it finds the counter missing.
func (m *CoherenceManager) Version(ctx context.Context, namespace string) int64 {
	key := versionKeyPrefix + namespace
	raw, err := m.cache.Get(ctx, key)
	if errors.Is(err, platformcache.ErrCacheMiss) {
		return defaultVersion
	}
	if err != nil {
		m.logger.Warn("Cache degraded: version read failed, assuming default",
			zap.String("namespace", namespace), zap.Error(err))
		return defaultVersion
	}
	version, parseErr := strconv.ParseInt(string(raw), 10, 64)
	if parseErr != nil || version < defaultVersion {
		m.logger.Warn("Cache degraded: malformed version counter, assuming default",
			zap.String("namespace", namespace), zap.String("raw", string(raw)))
		return defaultVersion
	}
	return version
}

// Bump advances the namespace version, retiring every cached read keyed by
// an older version. Called after each committed mutation. Concurrent bumps
// commute; a skipped intermediate version is harmless.
func (m *CoherenceManager) Bump(ctx context.Context, namespace string) {
	key := versionKeyPrefix + namespace
	version, err := m.cache.Incr(ctx, key)
	if err != nil {
		m.logger.Warn("Cache degraded: version bump failed; stale entries expire by TTL",
			zap.String("namespace", namespace), zap.Error(err))
		return
	}
	if version <= defaultVersion {
		// The counter was missing, so readers were on the default
		// version; one increment landed exactly on it. Go once more.
		if version, err = m.cache.Incr(ctx, key); err != nil {
			m.logger.Warn("Cache degraded: version bump failed; stale entries expire by TTL",
				zap.String("namespace", namespace), zap.Error(err))
			return
		}
	}
	m.logger.Debug("Cache version bumped",
		zap.String("namespace", namespace), zap.Int64("version", version))
}

// Key builds a versioned cache key for an operation and its normalized
// parameters: <namespace>:v<version>:<op>:<k=v&k=v>. Parameters are sorted
// by key and empty values dropped, so semantically identical queries map to
// the same entry.
func (m *CoherenceManager) Key(ctx context.Context, namespace, op string, params map[string]string) string {
	version := m.Version(ctx, namespace)
	return fmt.Sprintf("%s:v%d:%s:%s", namespace, version, op, canonicalParams(params))
}

func canonicalParams(params map[string]string) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return "-"
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	return strings.Join(pairs, "&")
}

// GetJSON loads a cached value into dest. Returns false on miss or on any
// cache/decode failure.
func (m *CoherenceManager) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	raw, err := m.cache.Get(ctx, key)
	if errors.Is(err, platformcache.ErrCacheMiss) {
		return false
	}
	if err != nil {
		m.logger.Warn("Cache degraded: get failed, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		m.logger.Warn("Cache degraded: undecodable entry, treating as miss",
			zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// SetJSON stores a value best-effort; failures are logged and ignored.
func (m *CoherenceManager) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		m.logger.Warn("Cache degraded: could not encode value",
			zap.String("key", key), zap.Error(err))
		return
	}
	if err := m.cache.Set(ctx, key, raw, ttl); err != nil {
		m.logger.Warn("Cache degraded: set failed",
			zap.String("key", key), zap.Error(err))
	}
}
