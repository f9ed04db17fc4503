package cache

import (
	"sync"

	"github.com/vkuzmenko/polycache/internal/util"
	"github.com/vkuzmenko/polycache/policy"
)

// shard is an independent partition of the cache with its own lock, map,
// and an intrusive doubly linked list (head=MRU, tail=LRU). With a single
// shard this is the whole engine; with many, each shard runs the same
// algorithm over its own capacity slice.
type shard[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu      sync.RWMutex
	m       map[K]*node[K, V]
	head    *node[K, V] // MRU
	tail    *node[K, V] // LRU
	len     int         // number of resident entries
	cost    int64       // total cost (if MaxCost is enabled)
	cap     int         // per-shard entry capacity
	maxCost int64       // per-shard cost limit (0 = disabled)
	broken  bool        // set when a panic escapes a policy callback

	// Policy and options (policy uses hooks to manipulate the list).
	pol policy.ShardPolicy[K, V]
	opt Options[K, V]

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	_      util.CacheLinePad
	hits   util.PaddedAtomicInt64
	misses util.PaddedAtomicInt64
	evicts util.PaddedAtomicUint64
}

// newShard initializes a shard with per-shard capacity, policy factory, and options.
// maxCost is derived by splitting opt.MaxCost evenly across shards.
func newShard[K comparable, V any](capacity int, pol policy.Policy[K, V], opt Options[K, V]) *shard[K, V] {
	s := &shard[K, V]{
		m:   make(map[K]*node[K, V], capacity),
		cap: capacity,
		opt: opt,
	}

	// Split global MaxCost across shards (ceil division).
	if opt.MaxCost > 0 {
		shards := opt.Shards
		if shards <= 0 {
			shards = util.ReasonableShardCount()
		}
		s.maxCost = (opt.MaxCost + int64(shards) - 1) / int64(shards)
	}

	// Wrap this shard with policy hooks.
	h := shardHooks[K, V]{s: s}
	s.pol = pol.New(h, capacity)
	return s
}

// Add inserts a NEW entry (no update). cost is the logical weight (0 = equal).
// Returns false if the key already exists.
func (s *shard[K, V]) Add(k K, v V, cost int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkBrokenLocked()
	defer s.poisonOnPanic()

	if _, exists := s.m[k]; exists {
		return false
	}
	s.insertLocked(k, v, cost)
	return true
}

// Set inserts or updates an entry and promotes it according to the policy.
// Returns the previous value if the key existed.
func (s *shard[K, V]) Set(k K, v V, cost int32) (prev V, replaced bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkBrokenLocked()
	defer s.poisonOnPanic()

	if n, ok := s.m[k]; ok {
		// In-place update: adjust cost delta and promote.
		oldCost := int64(n.cost)
		prev = n.val
		n.val = v
		n.cost = cost
		s.cost += int64(cost) - oldCost

		s.pol.OnUpdate(n)
		s.enforceLimitsLocked()
		return prev, true
	}

	s.insertLocked(k, v, cost)
	return prev, false
}

// insertLocked admits a new entry and sheds victims while over limits.
func (s *shard[K, V]) insertLocked(k K, v V, cost int32) {
	n := &node[K, V]{key: k, val: v, cost: cost}
	s.m[k] = n
	s.len++
	s.cost += int64(cost)

	// Let the policy place the entry (and optionally propose an immediate
	// eviction, e.g. 2Q's probation overflow).
	if ev := s.pol.OnAdd(n); ev != nil {
		s.evictNode(ev.(*node[K, V]), EvictPolicy)
	}
	s.enforceLimitsLocked()
}

// Get returns the value and promotes the entry according to the policy.
func (s *shard[K, V]) Get(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkBrokenLocked()
	defer s.poisonOnPanic()

	n, ok := s.m[k]
	if !ok {
		s.misses.Add(1)
		s.opt.Metrics.Miss()
		var zero V
		return zero, false
	}

	s.pol.OnGet(n)
	s.hits.Add(1)
	s.opt.Metrics.Hit()
	return n.val, true
}

// Remove deletes an entry by key and returns the removed value.
// The policy purges its references but records no ghost: an explicit delete
// is not evidence the entry was hot.
func (s *shard[K, V]) Remove(k K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkBrokenLocked()
	defer s.poisonOnPanic()

	n, ok := s.m[k]
	if !ok {
		var zero V
		return zero, false
	}
	s.pol.OnRemove(n)
	s.detachLocked(n)
	// Note: explicit Remove is not counted as an eviction in metrics;
	// add a dedicated "deletes" counter if needed.
	return n.val, true
}

// Len returns the number of resident entries in this shard.
func (s *shard[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.checkBrokenLocked()
	return s.len
}

// -------------------- internals (mu held) --------------------

// checkBrokenLocked fails deterministically once a prior panic has left the
// shard in an unknown state. Resetting silently would hide the invariant
// violation that caused the panic.
func (s *shard[K, V]) checkBrokenLocked() {
	if s.broken {
		panic(ErrPoisoned)
	}
}

// poisonOnPanic marks the shard broken if a panic escapes the critical
// section, then lets the panic propagate.
func (s *shard[K, V]) poisonOnPanic() {
	if r := recover(); r != nil {
		s.broken = true
		panic(r)
	}
}

// detachLocked removes n from the map, the list, and the counters.
func (s *shard[K, V]) detachLocked(n *node[K, V]) {
	s.unlink(n)
	delete(s.m, n.key)
	s.len--
	s.cost -= int64(n.cost)
	if s.cost < 0 {
		s.cost = 0
	}
}

// insertFront inserts n at MRU in O(1).
func (s *shard[K, V]) insertFront(n *node[K, V]) {
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// moveToFront promotes n to MRU in O(1).
func (s *shard[K, V]) moveToFront(n *node[K, V]) {
	if n == s.head {
		return
	}
	// detach
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.tail == n {
		s.tail = n.prev
	}
	// insert at head
	n.prev = nil
	n.next = s.head
	if s.head != nil {
		s.head.prev = n
	}
	s.head = n
	if s.tail == nil {
		s.tail = n
	}
}

// unlink detaches n from the list in O(1). Nodes that were never linked
// (policies keeping private ordering) are left untouched.
func (s *shard[K, V]) unlink(n *node[K, V]) {
	if n.prev == nil && n.next == nil && s.head != n {
		return
	}
	if n.prev != nil {
		n.prev.next = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	}
	if s.head == n {
		s.head = n.next
	}
	if s.tail == n {
		s.tail = n.prev
	}
	n.prev, n.next = nil, nil
}

// back returns the current LRU node in O(1).
func (s *shard[K, V]) back() *node[K, V] { return s.tail }

// evictNode removes the node, updates metrics/counters, and calls OnEvict.
func (s *shard[K, V]) evictNode(n *node[K, V], reason EvictReason) {
	s.pol.OnEvict(n)
	s.detachLocked(n)
	s.evicts.Add(1)
	s.opt.Metrics.Evict(reason)
	if cb := s.opt.OnEvict; cb != nil {
		// Note: calling callbacks under the lock is safer but may add latency.
		// If you move this outside the lock later, pass copies of key/value.
		cb(n.key, n.val, reason)
	}
}

// enforceLimitsLocked asks the policy for victims until both count and cost
// limits are satisfied.
func (s *shard[K, V]) enforceLimitsLocked() {
	// Count limit
	for s.len > s.cap {
		v := s.pol.Victim()
		if v == nil {
			break
		}
		s.evictNode(v.(*node[K, V]), EvictPolicy)
	}
	// Cost limit
	if s.maxCost > 0 {
		for s.cost > s.maxCost && s.len > 0 {
			v := s.pol.Victim()
			if v == nil {
				break
			}
			s.evictNode(v.(*node[K, V]), EvictCapacity)
		}
	}
	s.opt.Metrics.Size(s.len, s.cost)
}

// -------------------- policy hooks --------------------

// shardHooks adapts the shard's list operations to policy.Hooks.
type shardHooks[K comparable, V any] struct{ s *shard[K, V] }

func (h shardHooks[K, V]) MoveToFront(x policy.Node[K, V]) { h.s.moveToFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) PushFront(x policy.Node[K, V])   { h.s.insertFront(x.(*node[K, V])) }
func (h shardHooks[K, V]) Remove(x policy.Node[K, V]) {
	// Policies call Remove while the shard lock is held.
	// Map bookkeeping is performed by the shard itself.
	h.s.unlink(x.(*node[K, V]))
}

func (h shardHooks[K, V]) Front() policy.Node[K, V] {
	if h.s.head == nil {
		return nil
	}
	return h.s.head
}

func (h shardHooks[K, V]) Back() policy.Node[K, V] {
	if h.s.tail == nil {
		return nil
	}
	return h.s.tail
}

func (h shardHooks[K, V]) Prev(x policy.Node[K, V]) policy.Node[K, V] {
	if p := x.(*node[K, V]).prev; p != nil {
		return p
	}
	return nil
}

func (h shardHooks[K, V]) Next(x policy.Node[K, V]) policy.Node[K, V] {
	if n := x.(*node[K, V]).next; n != nil {
		return n
	}
	return nil
}

func (h shardHooks[K, V]) Len() int { return h.s.len }
