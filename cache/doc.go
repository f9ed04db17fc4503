// Package cache provides a fast, generic, sharded in-memory cache with
// pluggable eviction policies (LRU, LRU-K, 2Q, ARC, SIEVE), optional
// singleflight loading, lightweight metrics hooks, and cost-based capacity.
//
// Design
//
//   - Concurrency: the cache is split into shards, each protected by its own
//     mutex. A shard is a complete, self-contained eviction engine: map,
//     intrusive MRU↔LRU list, and a policy instance. The default shard count
//     is chosen by a heuristic (ReasonableShardCount) and is a power of two.
//     Shards: 1 gives a single-lock instance with globally exact policy order.
//
//   - Storage: each shard keeps a map[K]*node for lookups and an intrusive
//     doubly linked list for ordering. Every entry is owned by exactly one
//     shard map row; policy structures hold non-owning references to nodes,
//     and ghost sets hold keys only, never values.
//
//   - Policies: eviction is pluggable via the policy package. LRU is the
//     default. LRU-K resists single-touch pollution by ranking entries on
//     their K-th most recent access; 2Q quarantines first-time entries in a
//     probation FIFO; ARC adapts its recency/frequency split from ghost-list
//     feedback; SIEVE approximates LRU with one visited bit and a sweeping
//     hand, never moving entries on hit.
//
//   - Cost/MaxCost: besides entry count (Capacity), you may account a
//     user-defined "cost" per value (Options.Cost) and enforce a global
//     MaxCost. Shards split the MaxCost budget evenly.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight. If Loader is nil, GetOrLoad returns ErrNoLoader.
//
//   - Metrics: Options.Metrics receives Hit/Miss/Evict/Size signals.
//     By default NoopMetrics is used; plug a Prometheus adapter to export.
//
//   - Callbacks: Options.OnEvict(k, v, reason) is called for every eviction,
//     synchronously under the shard lock, before the entry is dropped.
//
//   - Failure: a panic escaping a policy callback leaves the shard in an
//     unknown state; the shard is marked failed and every later call panics
//     with ErrPoisoned instead of serving half-mutated data.
//
// Basic usage
//
//	c, err := cache.New[string, []byte](cache.Options[string, []byte]{Capacity: 10_000})
//	if err != nil {
//	    // invalid options
//	}
//	c.Set("a", []byte("1"))
//	if v, ok := c.Get("a"); ok {
//	    _ = v // use value
//	}
//	c.Remove("a")
//
// Using an alternative policy (ARC)
//
//	c, err := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 50_000,
//	    Policy:   arc.New[string, string](),
//	})
//
// With GetOrLoad (singleflight)
//
//	c, _ := cache.New[string, string](cache.Options[string, string]{
//	    Capacity: 1024,
//	    Loader: func(ctx context.Context, k string) (string, error) {
//	        // e.g. fetch from DB
//	        return "v:" + k, nil
//	    },
//	})
//	v, err := c.GetOrLoad(context.Background(), "key")
//
// Exporting metrics (example Prometheus adapter)
//
//	m := prom.New(nil, "polycache", "demo", nil) // implements Metrics
//	c, _ := cache.New[string, []byte](cache.Options[string, []byte]{
//	    Capacity: 10_000,
//	    Metrics:  m,
//	})
//
// Thread-safety & complexity
//
// All methods on Cache are safe for concurrent use. Typical operation cost is
// O(1) expected time: one map access and a constant amount of pointer fixes.
// Eviction work is O(1) per removed item for every policy except LRU-K,
// whose victim scan is linear in the shard's resident entries.
//
// See package cache/options.go for all available Options fields and package
// policy for the Policy/Hooks interfaces used to implement custom strategies.
package cache
