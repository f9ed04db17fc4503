package cache

import "context"

// Cache is a sharded, in-memory key/value cache interface.
// All methods are safe for concurrent use by multiple goroutines.
//
// Typical complexity for operations is amortized O(1): a map lookup plus
// constant-time list adjustments under a shard lock. The one exception is
// LRU-K eviction, which scans resident entries (see policy/lruk).
type Cache[K comparable, V any] interface {
	// Add inserts k→v only if k is not present.
	// Returns false if the key already exists (no update is performed).
	Add(k K, v V) bool

	// Set inserts or updates k→v and promotes the entry according to the
	// active eviction policy. Returns the previous value if k existed.
	Set(k K, v V) (prev V, replaced bool)

	// Get returns the value for k and a boolean flag indicating presence.
	// On hit, the entry is promoted according to the policy.
	Get(k K) (V, bool)

	// Remove deletes k if present and returns the removed value.
	// Removing an absent key is not an error: it returns the zero value
	// and false, leaving all state untouched.
	Remove(k K) (V, bool)

	// Len returns the total number of resident entries across all shards.
	Len() int

	// Capacity returns the configured entry limit.
	Capacity() int

	// Close stops background workers (if any) and marks the cache closed.
	// Current implementation is a soft close and returns nil.
	Close() error

	// GetOrLoad returns the value for k, loading it via Options.Loader on miss.
	// Concurrent loads for the same key are coalesced (singleflight).
	// If no Loader was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)
}
