package cache

// node is an intrusive doubly linked list element owned by a shard.
// It stores the key/value alongside list links and the cost used for
// cost-based accounting. Policy-specific bookkeeping (ghost sets, access
// rings, visited bits) lives inside the policy instance, keyed by node.
type node[K comparable, V any] struct {
	key K
	val V

	// Intrusive list links: head is MRU, tail is LRU.
	// A node whose links are nil and which is not the head is simply not
	// resident in the shard list (policies may keep their own ordering).
	prev *node[K, V]
	next *node[K, V]

	// Logical "cost" used when MaxCost is enabled.
	// Entries are evicted until both length and cost limits are satisfied.
	cost int32
}

// Key returns the node key (part of policy.Node interface).
func (n *node[K, V]) Key() K { return n.key }

// Value returns a pointer to the stored value (part of policy.Node interface).
// NOTE: callers must only read/write through this pointer while holding the
// shard lock; otherwise data races may occur.
func (n *node[K, V]) Value() *V { return &n.val }
