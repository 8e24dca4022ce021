// File: internal/platform/cache/memory.go
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

// MemoryCache is an in-process Cache implementation. It backs tests and
// single-node deployments that run without Redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		return nil, ErrCacheMiss
	}
	val := make([]byte, len(entry.value))
	copy(val, entry.value)
	return val, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := memoryEntry{value: make([]byte, len(value))}
	copy(entry.value, value)
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

func (m *MemoryCache) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if entry, ok := m.entries[key]; ok {
		expired := !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt)
		if !expired {
			if parsed, err := strconv.ParseInt(string(entry.value), 10, 64); err == nil {
				current = parsed
			}
		}
	}
	current++
	m.entries[key] = memoryEntry{value: []byte(strconv.FormatInt(current, 10))}
	return current, nil
}
