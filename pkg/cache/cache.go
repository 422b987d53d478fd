// Package cache provides a small byte-oriented TTL cache with an in-process
// implementation and a redis-backed one.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values with a per-entry TTL.
type Cache interface {
	// Get returns the value and true, or nil and false on a miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
