// Package twoq implements the 2Q eviction policy.
package twoq

import (
	"container/list"
	"fmt"

	"github.com/vkuzmenko/polycache/policy"
)

// DefaultA1Ratio is the fraction of capacity given to the probation queue.
const DefaultA1Ratio = 0.25

// twoQ implements the 2Q eviction policy.
//
// Resident queues:
//   - A1in (probation FIFO) — policy-private list + index; admits first-time
//     entries. Hits inside A1in change nothing: only a second admission
//     (through the ghost set) proves an entry.
//   - Am (mature LRU) — the shard list, exclusively; ordering via hooks.
//
// Ghost A1out: keys only (no values), tracks recently evicted A1in keys so a
// re-admission can bypass probation and land directly in Am.
//
// Concurrency: all methods are called under the shard lock.
type twoQ[K comparable, V any] struct {
	h policy.Hooks[K, V]

	capIn    int // A1in quota (per-shard)
	capGhost int // A1out bound (per-shard)

	// A1in: newest at Front() -> oldest at Back() (pure FIFO, no bumps)
	inList *list.List
	// Fast membership check for "is node in A1in?"
	inIdx map[policy.Node[K, V]]*list.Element // element.Value is policy.Node[K,V]

	// A1out (ghosts): keys only, newest at Front() -> oldest at Back()
	ghostList *list.List
	ghostIdx  map[K]*list.Element // key -> element in ghostList (element.Value is K)
}

// New constructs a 2Q policy factory. a1Ratio is the fraction of each shard's
// capacity reserved for the probation queue; it must lie in (0, 1).
// Use DefaultA1Ratio when in doubt. The ghost set is bounded to the shard
// capacity in keys.
func New[K comparable, V any](a1Ratio float64) (policy.Policy[K, V], error) {
	if a1Ratio <= 0 || a1Ratio >= 1 {
		return nil, fmt.Errorf("twoq: a1Ratio must be in (0, 1), got %v", a1Ratio)
	}
	return twoQPolicy[K, V]{a1Ratio: a1Ratio}, nil
}

type twoQPolicy[K comparable, V any] struct {
	a1Ratio float64
}

func (p twoQPolicy[K, V]) New(h policy.Hooks[K, V], capacity int) policy.ShardPolicy[K, V] {
	capIn := int(p.a1Ratio * float64(capacity))
	if capIn < 1 {
		capIn = 1
	}
	return &twoQ[K, V]{
		h:         h,
		capIn:     capIn,
		capGhost:  capacity,
		inList:    list.New(),
		inIdx:     make(map[policy.Node[K, V]]*list.Element),
		ghostList: list.New(),
		ghostIdx:  make(map[K]*list.Element),
	}
}

// OnAdd admission rules:
//   - If the key is present in ghosts (A1out), this is a second admission:
//     bypass A1in, admit directly to Am MRU, and drop the ghost.
//   - Otherwise admit into A1in only. Probationary entries never enter the
//     shard list, so the shard list holds Am exclusively.
//   - If A1in overflows its quota, return its FIFO head for eviction.
func (q *twoQ[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	k := n.Key()
	if ge, ok := q.ghostIdx[k]; ok {
		// Second chance: promote from ghosts directly into Am (skip A1in).
		q.ghostList.Remove(ge)
		delete(q.ghostIdx, k)
		q.h.PushFront(n) // MRU in shard list (Am)
		return nil
	}

	// First-time admission: probation only.
	q.inIdx[n] = q.inList.PushFront(n)

	// If A1in is over quota, propose its oldest entry for eviction.
	if q.inList.Len() > q.capIn {
		if oldest := q.inList.Back(); oldest != nil {
			return oldest.Value.(policy.Node[K, V])
		}
	}
	return nil
}

// OnGet: a hit inside A1in is structurally inert (residency in probation is
// decided purely by FIFO age). An Am hit is a standard LRU bump.
func (q *twoQ[K, V]) OnGet(n policy.Node[K, V]) {
	if _, ok := q.inIdx[n]; ok {
		return
	}
	q.h.MoveToFront(n)
}

// OnUpdate follows OnGet semantics (updates count as recent use).
func (q *twoQ[K, V]) OnUpdate(n policy.Node[K, V]) { q.OnGet(n) }

// OnEvict:
//   - Evictions out of A1in record the key in A1out (ghost, value discarded).
//   - Evictions out of Am leave no ghost — Am entries already proved
//     themselves once; a third chance is not part of 2Q.
func (q *twoQ[K, V]) OnEvict(n policy.Node[K, V]) {
	el, ok := q.inIdx[n]
	if !ok {
		return
	}
	// Remove from A1in tracking.
	q.inList.Remove(el)
	delete(q.inIdx, n)

	k := n.Key()

	// Insert/refresh the ghost at the newest end.
	if old := q.ghostIdx[k]; old != nil {
		q.ghostList.Remove(old)
	}
	q.ghostIdx[k] = q.ghostList.PushFront(k)

	// Enforce ghost capacity (drop oldest ghosts FIFO).
	for q.ghostList.Len() > q.capGhost {
		tail := q.ghostList.Back()
		if tail == nil {
			break
		}
		kk := tail.Value.(K)
		delete(q.ghostIdx, kk)
		q.ghostList.Remove(tail)
	}
}

// OnRemove purges A1in tracking for an explicit delete. No ghost is written:
// a deliberate removal is not eviction pressure.
func (q *twoQ[K, V]) OnRemove(n policy.Node[K, V]) {
	if el, ok := q.inIdx[n]; ok {
		q.inList.Remove(el)
		delete(q.inIdx, n)
	}
}

// Victim is consulted when the shard is over capacity. A1in's quota is
// enforced eagerly in OnAdd, so capacity pressure lands on Am: shed its LRU
// tail. If Am is empty (tiny caches), fall back to the oldest probationary
// entry.
func (q *twoQ[K, V]) Victim() policy.Node[K, V] {
	if tail := q.h.Back(); tail != nil {
		return tail
	}
	if oldest := q.inList.Back(); oldest != nil {
		return oldest.Value.(policy.Node[K, V])
	}
	return nil
}
