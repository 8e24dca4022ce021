// File: internal/platform/cache/memory_test.go
package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGetDel(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	val, err := c.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), val)

	require.NoError(t, c.Del(ctx, "key"))
	_, err = c.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	_, err := c.Get(ctx, "key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheIncrSequence(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	n, err := c.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, c.Set(ctx, "counter", []byte("41"), 0))
	n, err = c.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestMemoryCacheIncrIgnoresExpiredValue(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "counter", []byte("41"), time.Nanosecond))
	time.Sleep(2 * time.Millisecond)

	// The expired value must not seed the increment.
	n, err := c.Incr(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
