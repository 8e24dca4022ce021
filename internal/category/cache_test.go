// File: internal/category/cache_test.go
package category

import (
	"context"
	"errors"
	"testing"
	"time"

	platformcache "catalog_hierarchy_backend/internal/platform/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// failingCache simulates an unreachable cache backend.
type failingCache struct{}

var errBackendDown = errors.New("cache backend unreachable")

func (f *failingCache) Get(context.Context, string) ([]byte, error) { return nil, errBackendDown }
func (f *failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errBackendDown
}
func (f *failingCache) Del(context.Context, string) error          { return errBackendDown }
func (f *failingCache) Incr(context.Context, string) (int64, error) { return 0, errBackendDown }

func newTestManager() (*CoherenceManager, *platformcache.MemoryCache) {
	mem := platformcache.NewMemoryCache()
	return NewCoherenceManager(mem, zap.NewNop()), mem
}

func TestVersionDefaultsToOne(t *testing.T) {
	m, _ := newTestManager()
	assert.Equal(t, int64(1), m.Version(context.Background(), CacheNamespace))
}

func TestVersionReadLeavesCounterAbsent(t *testing.T) {
	m, mem := newTestManager()
	ctx := context.Background()

	// A read on a missing counter must not write it: a delayed write could
	// land after a concurrent bump and wind the version backwards.
	require.Equal(t, int64(1), m.Version(ctx, CacheNamespace))
	_, err := mem.Get(ctx, versionKeyPrefix+CacheNamespace)
	assert.ErrorIs(t, err, platformcache.ErrCacheMiss)

	// A bump after that read still lands above the version the reader used.
	m.Bump(ctx, CacheNamespace)
	assert.Greater(t, m.Version(ctx, CacheNamespace), int64(1))
}

func TestBumpAlwaysLandsAboveDefault(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	// Bump on a namespace nobody has read yet.
	m.Bump(ctx, CacheNamespace)
	assert.Greater(t, m.Version(ctx, CacheNamespace), int64(1))
}

func TestBumpInvalidatesVersionedKeys(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	key := m.Key(ctx, CacheNamespace, "tree", nil)
	m.SetJSON(ctx, key, []string{"cached"}, time.Minute)

	var out []string
	require.True(t, m.GetJSON(ctx, key, &out))

	m.Bump(ctx, CacheNamespace)

	newKey := m.Key(ctx, CacheNamespace, "tree", nil)
	assert.NotEqual(t, key, newKey)
	assert.False(t, m.GetJSON(ctx, newKey, &out))
}

func TestKeyCanonicalizesParams(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	a := m.Key(ctx, CacheNamespace, "list", map[string]string{"b": "2", "a": "1", "empty": ""})
	b := m.Key(ctx, CacheNamespace, "list", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)

	c := m.Key(ctx, CacheNamespace, "list", map[string]string{"a": "1"})
	assert.NotEqual(t, a, c)

	noParams := m.Key(ctx, CacheNamespace, "list", nil)
	allEmpty := m.Key(ctx, CacheNamespace, "list", map[string]string{"x": ""})
	assert.Equal(t, noParams, allEmpty)
}

func TestGetJSONRoundTrip(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()

	stats := StatsResponse{TotalCategories: 4, TotalProducts: 9, AverageProductsPerCategory: 2.25}
	m.SetJSON(ctx, "some-key", &stats, time.Minute)

	var out StatsResponse
	require.True(t, m.GetJSON(ctx, "some-key", &out))
	assert.Equal(t, stats, out)
}

func TestGetJSONTreatsUndecodableEntryAsMiss(t *testing.T) {
	m, mem := newTestManager()
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "bad", []byte("not json"), 0))

	var out StatsResponse
	assert.False(t, m.GetJSON(ctx, "bad", &out))
}

func TestUnreachableBackendDegradesToDefaults(t *testing.T) {
	m := NewCoherenceManager(&failingCache{}, zap.NewNop())
	ctx := context.Background()

	assert.Equal(t, int64(1), m.Version(ctx, CacheNamespace))
	m.Bump(ctx, CacheNamespace) // must not panic or error

	var out []string
	assert.False(t, m.GetJSON(ctx, "any", &out))
	m.SetJSON(ctx, "any", []string{"x"}, time.Minute) // swallowed
}
