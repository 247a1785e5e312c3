// Package cache defines a small generic cache contract plus an in-memory
// implementation with TTL expiry. It backs the embedding cache and the
// retrieval query cache when Redis is not configured.
package cache

import (
	"context"
	"time"
)

// Cache is a generic key/value cache with per-entry TTL.
type Cache[K comparable, V any] interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key K) (V, bool)

	// Set stores a value. A non-positive ttl means the entry never expires.
	Set(ctx context.Context, key K, value V, ttl time.Duration)

	// Delete removes a key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key K)

	// Len returns the number of live entries.
	Len() int

	// Clear removes all entries.
	Clear()
}
