package policy

// Node is the minimal contract a cache entry must satisfy for a policy.
// It provides read-only access to the key and a pointer to the value.
// The pointer allows in-place updates without re-linking the intrusive node.
type Node[K comparable, V any] interface {
	Key() K
	Value() *V
}

// Hooks expose O(1) operations on the shard's intrusive ordered list
// (head = MRU, tail = LRU). Implementations are provided by the shard.
//
// Concurrency: all hook calls happen under the shard lock.
// Important: hooks manage only the list; the shard owns the key->node map
// and the resident-entry count. A policy is free to ignore the shard list
// entirely and keep its own ordering (ARC and LRU-K do).
type Hooks[K comparable, V any] interface {
	// MoveToFront promotes the node to MRU.
	MoveToFront(Node[K, V])
	// PushFront inserts the node at MRU (used on admission).
	PushFront(Node[K, V])
	// Remove detaches the node from the list (map bookkeeping is done by the shard).
	Remove(Node[K, V])
	// Front returns the current MRU node (or nil if the list is empty).
	Front() Node[K, V]
	// Back returns the current LRU node (or nil if the list is empty).
	Back() Node[K, V]
	// Prev returns the neighbor closer to the front, or nil at the front.
	Prev(Node[K, V]) Node[K, V]
	// Next returns the neighbor closer to the back, or nil at the back.
	Next(Node[K, V]) Node[K, V]
	// Len returns the number of resident nodes in the shard.
	Len() int
}

// ShardPolicy is a per-shard eviction policy instance bound to shard hooks.
// All methods are invoked under the shard lock.
//
// Semantics:
//   - OnAdd may return an immediate eviction candidate (e.g., the FIFO head
//     of 2Q's probation queue when it overflows its quota). The shard evicts
//     that node and subsequently calls OnEvict for it.
//   - OnGet/OnUpdate record a hit (promotion, visited bit, access ring).
//   - Victim is called while the shard is over its limits; it must return
//     the node to shed next, or nil if the policy tracks nothing.
//   - OnEvict is cleanup for a policy- or capacity-driven eviction; this is
//     where ghost sets are populated.
//   - OnRemove is cleanup for an explicit delete; it must purge any internal
//     references to the node but leaves no ghost. The shard performs the
//     actual map/list deletion in both cases.
type ShardPolicy[K comparable, V any] interface {
	OnAdd(Node[K, V]) (evict Node[K, V])
	OnGet(Node[K, V])
	OnUpdate(Node[K, V])
	OnEvict(Node[K, V])
	OnRemove(Node[K, V])
	Victim() Node[K, V]
}

// Policy is a factory that creates shard-local policy instances bound to a
// particular shard's hooks. capacity is the per-shard entry budget; policies
// derive quotas and ghost bounds from it.
type Policy[K comparable, V any] interface {
	New(h Hooks[K, V], capacity int) ShardPolicy[K, V]
}
