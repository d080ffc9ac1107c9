// Package cache provides a keyed byte cache for rendered pages and template
// sources. Supports a local in-memory backend and Redis for multi-instance
// deployments.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache defines the interface for keyed cache storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves a value by key.
	// Returns nil, nil if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value under a key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Removing an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	// Backend is "local" or "redis".
	Backend string

	// TTL is how long entries live. Zero means no expiry for the local
	// backend and the Redis default for the redis backend.
	TTL time.Duration

	// Redis holds redis-specific settings.
	Redis RedisConfig
}

// New builds a cache from configuration. An empty backend defaults to local.
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocalCache(cfg.TTL), nil
	case "redis":
		return NewRedisCache(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s (valid: local, redis)", cfg.Backend)
	}
}
