// Package sieve implements the SIEVE eviction policy.
//
// SIEVE keeps entries in pure insertion (FIFO) order and never moves them on
// hit — a hit only sets a visited bit. Eviction sweeps a hand from the tail
// toward the head: visited entries get their bit cleared and one more life,
// the first unvisited entry is evicted, and the hand stays where it stopped
// so the next eviction resumes there instead of rescanning from the tail.
// The result is close-to-LRU hit rates with no per-hit list writes.
package sieve

import "github.com/vkuzmenko/polycache/policy"

// sieve reuses the shard list as its FIFO order (insertions land at the
// front, the hand walks from the back) and keeps the visited bits and the
// hand as policy state.
//
// Concurrency: all methods are called under the shard lock.
type sieve[K comparable, V any] struct {
	h policy.Hooks[K, V]

	// visited holds the entries touched since the hand last passed them.
	visited map[policy.Node[K, V]]struct{}

	// hand is the sweep position carried across eviction calls;
	// nil means "start from the tail".
	hand policy.Node[K, V]

	// fresh is the entry admitted by the current put. The shard admits
	// before it sheds, but the sweep must behave as if eviction had come
	// first: the newest entry is not a candidate unless it is the only
	// one left. Any later callback clears the marker.
	fresh policy.Node[K, V]
}

type sievePolicy[K comparable, V any] struct{}

// New constructs a SIEVE policy factory.
func New[K comparable, V any]() policy.Policy[K, V] { return sievePolicy[K, V]{} }

func (sievePolicy[K, V]) New(h policy.Hooks[K, V], capacity int) policy.ShardPolicy[K, V] {
	return &sieve[K, V]{
		h:       h,
		visited: make(map[policy.Node[K, V]]struct{}, capacity),
	}
}

// OnAdd places the new entry at the head of the FIFO with a clear bit.
func (p *sieve[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.h.PushFront(n)
	p.fresh = n
	return nil
}

// OnGet marks the entry visited. No list movement — that is the point.
// Any hit also ends the admission that set fresh, so the marker is dropped.
func (p *sieve[K, V]) OnGet(n policy.Node[K, V]) {
	p.visited[n] = struct{}{}
	p.fresh = nil
}

// OnUpdate follows OnGet semantics (updates count as recent use).
func (p *sieve[K, V]) OnUpdate(n policy.Node[K, V]) {
	p.visited[n] = struct{}{}
	p.fresh = nil
}

// OnEvict clears the entry's bit and steps the hand off it. Runs before the
// shard unlinks the node, so the neighbor lookup is still valid.
func (p *sieve[K, V]) OnEvict(n policy.Node[K, V]) { p.forget(n) }

// OnRemove follows OnEvict cleanup: the hand must never dangle on a node
// that is about to leave the list.
func (p *sieve[K, V]) OnRemove(n policy.Node[K, V]) { p.forget(n) }

func (p *sieve[K, V]) forget(n policy.Node[K, V]) {
	delete(p.visited, n)
	if p.hand == n {
		p.hand = p.h.Prev(n)
	}
	if p.fresh == n {
		p.fresh = nil
	}
}

// Victim sweeps from the hand (tail on first use) toward the head, wrapping
// past the head back to the tail. Visited entries are spared once and
// cleared; the first clean entry is the victim. The hand is left one step
// past the victim so the next sweep resumes there.
//
// Termination: one full lap clears every bit, so the second lap must stop.
// Meeting fresh a second time means a whole lap found nothing else (cost
// pressure can leave the newest entry as the sole resident); it is then
// surrendered as the last-resort victim so the sweep always returns.
func (p *sieve[K, V]) Victim() policy.Node[K, V] {
	n := p.hand
	if n == nil {
		n = p.h.Back()
	}
	if n == nil {
		return nil
	}
	skippedFresh := false
	for {
		if n == p.fresh {
			if skippedFresh {
				p.hand = p.h.Prev(n)
				return n
			}
			skippedFresh = true
			n = p.h.Prev(n)
			if n == nil {
				n = p.h.Back()
			}
			continue
		}
		if _, ok := p.visited[n]; !ok {
			p.hand = p.h.Prev(n)
			return n
		}
		delete(p.visited, n)
		n = p.h.Prev(n)
		if n == nil {
			n = p.h.Back() // wrapped past the head
		}
	}
}
