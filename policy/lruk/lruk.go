// Package lruk implements the LRU-K eviction policy.
//
// LRU-K ranks entries by their K-th most recent access ("backward
// K-distance") instead of the single most recent one, so an entry touched K
// times recently outranks one touched once very recently. Entries with fewer
// than K recorded accesses are "cold" and always preferred for eviction over
// any warm entry — this is what makes the policy resistant to one-time scan
// traffic.
package lruk

import (
	"fmt"
	"math"

	"github.com/vkuzmenko/polycache/policy"
)

// DefaultK is the usual choice; K=2 already separates scan traffic from the
// working set, and larger K mostly adds bookkeeping.
const DefaultK = 2

// history is the ring of the last K access ticks for one entry,
// oldest first. len(ticks) <= k, ticks strictly increasing.
type history struct {
	ticks []uint64
}

// lruK keeps a per-entry access ring and selects victims by scanning it.
//
// The scan is O(n) per eviction. That is a deliberate trade-off: it is
// simple, exact, and fine below ~10k resident entries per shard. Larger
// deployments should back the selection with a min-heap keyed by the K-th
// access tick, paying O(log n) on every touch instead.
//
// Ordering uses a per-shard logical tick rather than wall-clock time:
// strictly monotone, so backward-K-distance comparisons never tie.
type lruK[K comparable, V any] struct {
	k    int
	tick uint64
	hist map[policy.Node[K, V]]*history
}

// New constructs an LRU-K policy factory. k must be >= 1; k == 1 degenerates
// to plain LRU order.
func New[K comparable, V any](k int) (policy.Policy[K, V], error) {
	if k < 1 {
		return nil, fmt.Errorf("lruk: k must be >= 1, got %d", k)
	}
	return lruKPolicy[K, V]{k: k}, nil
}

type lruKPolicy[K comparable, V any] struct{ k int }

func (p lruKPolicy[K, V]) New(_ policy.Hooks[K, V], capacity int) policy.ShardPolicy[K, V] {
	return &lruK[K, V]{
		k:    p.k,
		hist: make(map[policy.Node[K, V]]*history, capacity),
	}
}

// OnAdd starts the entry's ring with a single tick. The shard list is unused:
// ordering lives entirely in the rings.
func (p *lruK[K, V]) OnAdd(n policy.Node[K, V]) (evict policy.Node[K, V]) {
	p.tick++
	p.hist[n] = &history{ticks: []uint64{p.tick}}
	return nil
}

// OnGet appends the current tick to the entry's ring, dropping the oldest
// tick once the ring holds k.
func (p *lruK[K, V]) OnGet(n policy.Node[K, V]) {
	h, ok := p.hist[n]
	if !ok {
		return
	}
	p.tick++
	if len(h.ticks) < p.k {
		h.ticks = append(h.ticks, p.tick)
		return
	}
	copy(h.ticks, h.ticks[1:])
	h.ticks[len(h.ticks)-1] = p.tick
}

// OnUpdate follows OnGet semantics (updates count as recent use).
func (p *lruK[K, V]) OnUpdate(n policy.Node[K, V]) { p.OnGet(n) }

// OnEvict drops the entry's ring.
func (p *lruK[K, V]) OnEvict(n policy.Node[K, V]) { delete(p.hist, n) }

// OnRemove drops the entry's ring.
func (p *lruK[K, V]) OnRemove(n policy.Node[K, V]) { delete(p.hist, n) }

// Victim scans all rings. Cold entries (fewer than k accesses) are always
// preferred, oldest first tick winning; only when none exist does the oldest
// K-th-most-recent tick among warm entries decide. Ticks are unique, so the
// choice is deterministic.
func (p *lruK[K, V]) Victim() policy.Node[K, V] {
	var (
		cold, warm         policy.Node[K, V]
		coldTick, warmTick uint64 = math.MaxUint64, math.MaxUint64
	)
	for n, h := range p.hist {
		oldest := h.ticks[0]
		if len(h.ticks) < p.k {
			if oldest < coldTick {
				cold, coldTick = n, oldest
			}
		} else if oldest < warmTick {
			warm, warmTick = n, oldest
		}
	}
	if cold != nil {
		return cold
	}
	return warm
}
