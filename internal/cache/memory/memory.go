package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/cache"
)

type entry struct {
	val       string
	expiresAt time.Time
}

// MemoryCache is a process-local cache used when no redis address is configured.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry)}
}

func (m *MemoryCache) Set(_ context.Context, key, val string, ttl time.Duration) error {
	e := entry{val: val}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || (!e.expiresAt.IsZero() && time.Now().After(e.expiresAt)) {
		return "", cache.ErrMiss
	}
	return e.val, nil
}
