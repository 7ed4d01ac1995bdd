package cache

import (
	"context"
	"time"
)

// Cache defines the interface for short-lived auth state (challenges, session tokens).
// Memory cache serves development and tests; Redis serves multi-instance deployments.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Take retrieves and deletes a value in one step, so a value is handed out at most once.
	// Returns ErrCacheMiss if not found.
	Take(ctx context.Context, key string) ([]byte, error)

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Common cache errors
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
