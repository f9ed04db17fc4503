// Package arc implements the Adaptive Replacement Cache eviction policy.
//
// ARC splits residents into a recency list T1 (touched once) and a frequency
// list T2 (touched at least twice), shadowed by ghost key lists B1/B2 of
// recently evicted keys. A hit in a ghost list is feedback that its side was
// sized too small; the adaptive target p for |T1| moves accordingly, so the
// policy tunes itself between LRU-like and LFU-like behavior per workload.
// See: https://ieeexplore.ieee.org/document/1297303.
package arc

import (
	"container/list"

	"github.com/vkuzmenko/polycache/policy"
)

// arc keeps all four lists privately and ignores the shard list: victims are
// chosen by the adaptive target, not by a single global order.
//
// Concurrency: all methods are called under the shard lock. p is scoped to
// one shard instance and dies with it.
type arc[K comparable, V any] struct {
	capacity int
	p        int // target size of T1, in [0, capacity]

	// Resident lists: MRU at Front() -> LRU at Back(). Element values are
	// policy.Node[K,V].
	t1, t2 *list.List
	// Membership indexes for O(1) promotion and purge.
	t1Idx, t2Idx map[policy.Node[K, V]]*list.Element

	// Ghosts: keys only, newest at Front() -> oldest at Back().
	b1, b2       *list.List
	b1Idx, b2Idx map[K]*list.Element

	// True when the most recent admission was a B2 ghost hit; biases the
	// replace direction toward shedding T1 when |T1| == p. Cleared on
	// update so it cannot outlive the admission that set it.
	lastFromB2 bool
}

type arcPolicy[K comparable, V any] struct{}

// New constructs an ARC policy factory. ARC has no tunables: the one
// parameter that matters (the recency/frequency split) is learned online.
func New[K comparable, V any]() policy.Policy[K, V] { return arcPolicy[K, V]{} }

func (arcPolicy[K, V]) New(_ policy.Hooks[K, V], capacity int) policy.ShardPolicy[K, V] {
	return &arc[K, V]{
		capacity: capacity,
		t1:       list.New(),
		t2:       list.New(),
		t1Idx:    make(map[policy.Node[K, V]]*list.Element),
		t2Idx:    make(map[policy.Node[K, V]]*list.Element),
		b1:       list.New(),
		b2:       list.New(),
		b1Idx:    make(map[K]*list.Element),
		b2Idx:    make(map[K]*list.Element),
	}
}

// OnAdd admission rules:
//   - Key in B1: a recently evicted single-touch entry is back — T1 was too
//     small. Grow p, drop the ghost, and admit straight into T2 (the repeat
//     visit is what frequency status means).
//   - Key in B2: symmetric — shrink p, drop the ghost, admit into T2.
//   - Fresh key: admit at T1 MRU.
func (q *arc[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	k := n.Key()

	if el, ok := q.b1Idx[k]; ok {
		delta := 1
		if l1, l2 := q.b1.Len(), q.b2.Len(); l2 > l1 {
			delta = l2 / l1
		}
		q.p = min(q.p+delta, q.capacity)

		q.b1.Remove(el)
		delete(q.b1Idx, k)
		q.t2Idx[n] = q.t2.PushFront(n)
		q.lastFromB2 = false
		return nil
	}

	if el, ok := q.b2Idx[k]; ok {
		delta := 1
		if l1, l2 := q.b1.Len(), q.b2.Len(); l1 > l2 {
			delta = l1 / l2
		}
		q.p = max(q.p-delta, 0)

		q.b2.Remove(el)
		delete(q.b2Idx, k)
		q.t2Idx[n] = q.t2.PushFront(n)
		q.lastFromB2 = true
		return nil
	}

	q.t1Idx[n] = q.t1.PushFront(n)
	q.lastFromB2 = false
	return nil
}

// OnGet: a T1 hit is the second touch — promote to T2 MRU; entries never
// return to T1. A T2 hit is a standard LRU bump within T2.
func (q *arc[K, V]) OnGet(n policy.Node[K, V]) {
	if el, ok := q.t1Idx[n]; ok {
		q.t1.Remove(el)
		delete(q.t1Idx, n)
		q.t2Idx[n] = q.t2.PushFront(n)
		return
	}
	if el, ok := q.t2Idx[n]; ok {
		q.t2.MoveToFront(el)
	}
}

// OnUpdate follows OnGet semantics (updates count as recent use). The
// replace bias belongs to the admission that set it; an update starts a new
// operation, so a cost-triggered eviction here must not reuse it.
func (q *arc[K, V]) OnUpdate(n policy.Node[K, V]) {
	q.lastFromB2 = false
	q.OnGet(n)
}

// OnEvict records the evicted key in the matching ghost list: T1 evictions
// feed B1, T2 evictions feed B2. Ghosts hold keys only and are trimmed FIFO
// to the shard capacity.
func (q *arc[K, V]) OnEvict(n policy.Node[K, V]) {
	k := n.Key()
	if el, ok := q.t1Idx[n]; ok {
		q.t1.Remove(el)
		delete(q.t1Idx, n)
		q.pushGhost(q.b1, q.b1Idx, k)
		return
	}
	if el, ok := q.t2Idx[n]; ok {
		q.t2.Remove(el)
		delete(q.t2Idx, n)
		q.pushGhost(q.b2, q.b2Idx, k)
	}
}

// OnRemove purges the node for an explicit delete. No ghost: a deliberate
// removal is not a signal about list sizing.
func (q *arc[K, V]) OnRemove(n policy.Node[K, V]) {
	if el, ok := q.t1Idx[n]; ok {
		q.t1.Remove(el)
		delete(q.t1Idx, n)
		return
	}
	if el, ok := q.t2Idx[n]; ok {
		q.t2.Remove(el)
		delete(q.t2Idx, n)
	}
}

// Victim implements the REPLACE rule: shed T1's tail when T1 exceeds its
// target p, or when T1 sits exactly at target and the incoming key arrived
// from B2 (frequency side needs the room). Otherwise shed T2's tail.
func (q *arc[K, V]) Victim() policy.Node[K, V] {
	t1Len := q.t1.Len()
	if t1Len > 0 && (t1Len > q.p || (t1Len == q.p && q.lastFromB2)) {
		return q.t1.Back().Value.(policy.Node[K, V])
	}
	if tail := q.t2.Back(); tail != nil {
		return tail.Value.(policy.Node[K, V])
	}
	if tail := q.t1.Back(); tail != nil {
		return tail.Value.(policy.Node[K, V])
	}
	return nil
}

// pushGhost records k at the newest end of a ghost list, bounded to capacity.
func (q *arc[K, V]) pushGhost(l *list.List, idx map[K]*list.Element, k K) {
	if old := idx[k]; old != nil {
		l.Remove(old)
	}
	idx[k] = l.PushFront(k)
	for l.Len() > q.capacity {
		tail := l.Back()
		if tail == nil {
			break
		}
		delete(idx, tail.Value.(K))
		l.Remove(tail)
	}
}
