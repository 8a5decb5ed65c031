package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryScanCodeCache caches scan-code to keg-id lookups in process memory.
// Suitable for single-instance deployments and tests; distributed setups use
// the Redis-backed cache so every instance sees the same mapping.
type InMemoryScanCodeCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

type entry struct {
	id        uuid.UUID
	expiresAt time.Time
}

// NewInMemoryScanCodeCache creates an in-memory cache with the given TTL.
// A non-positive TTL keeps entries forever.
func NewInMemoryScanCodeCache(ttl time.Duration) *InMemoryScanCodeCache {
	return &InMemoryScanCodeCache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Get returns the keg id for a scan code, if cached and not expired
func (c *InMemoryScanCodeCache) Get(_ context.Context, code string) (uuid.UUID, bool) {
	c.mu.RLock()
	e, ok := c.entries[code]
	c.mu.RUnlock()
	if !ok {
		return uuid.Nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, code)
		c.mu.Unlock()
		return uuid.Nil, false
	}
	return e.id, true
}

// Set stores the scan code mapping
func (c *InMemoryScanCodeCache) Set(_ context.Context, code string, id uuid.UUID) {
	e := entry{id: id}
	if c.ttl > 0 {
		e.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[code] = e
	c.mu.Unlock()
}
