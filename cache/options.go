package cache

import (
	"context"

	"github.com/vkuzmenko/polycache/policy"
)

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictPolicy — removed by the active eviction policy to satisfy the
	// entry-count capacity (or a policy-internal quota such as 2Q's A1in).
	EvictPolicy EvictReason = iota
	// EvictCapacity — removed to satisfy the cost limit (MaxCost).
	EvictCapacity
)

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, cost int64)
	// Consider adding ObserveLoad(dur) in the future for Loader timing.
}

// Options configures the cache behavior. Zero values are safe;
// sane defaults are applied in New():
//   - nil Policy   => LRU
//   - Shards <= 0  => auto (rounded up to power of two)
//   - nil Metrics  => NoopMetrics
type Options[K comparable, V any] struct {
	// Capacity is the entry count limit (used together with MaxCost if set).
	// Must be > 0; New returns an error otherwise.
	Capacity int

	// Shards defines the number of shards. If 0, an automatic value is chosen
	// (≈ 2*GOMAXPROCS) and rounded to the next power of two. Use Shards: 1
	// for a single-lock instance with globally exact policy behavior.
	Shards int

	// Policy is a pluggable eviction policy (LRU/LRU-K/2Q/ARC/SIEVE);
	// nil => LRU by default. Policy config is validated by the policy
	// package constructors, before the cache exists.
	Policy policy.Policy[K, V]

	// Cost-based limiting (e.g., bytes). If Cost is non-nil and MaxCost > 0,
	// the cache evicts until both entry count and total cost limits are satisfied.
	Cost    func(v V) int // nil = all entries have equal cost (0)
	MaxCost int64         // total cost limit; 0 disables cost limiting

	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// Observability
	// OnEvict is called on eviction under the shard lock, immediately before
	// the entry is dropped; keep callbacks lightweight.
	OnEvict func(k K, v V, reason EvictReason)
	Metrics Metrics
}
