package cache

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	value   []byte
	expires time.Time
}

// LocalCache implements Cache with an in-process map.
// This is suitable for single-instance deployments.
type LocalCache struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	ttl     time.Duration
}

// NewLocalCache creates an in-memory cache. A zero ttl disables expiry.
func NewLocalCache(ttl time.Duration) *LocalCache {
	return &LocalCache{entries: map[string]localEntry{}, ttl: ttl}
}

// Get retrieves a value, treating expired entries as absent.
func (c *LocalCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}
	// Callers may hold onto the slice; hand out a copy.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value under a key.
func (c *LocalCache) Set(_ context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	e := localEntry{value: stored}
	if c.ttl > 0 {
		e.expires = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return nil
}

// Delete removes a key.
func (c *LocalCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Close is a no-op for the local cache.
func (c *LocalCache) Close() error {
	return nil
}
