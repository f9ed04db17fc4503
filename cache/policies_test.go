package cache

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/vkuzmenko/polycache/policy"
	"github.com/vkuzmenko/polycache/policy/arc"
	"github.com/vkuzmenko/polycache/policy/lruk"
	"github.com/vkuzmenko/polycache/policy/sieve"
	"github.com/vkuzmenko/polycache/policy/twoq"
)

// newSingleShard builds a one-shard cache so policy behavior is globally
// exact and deterministic.
func newSingleShard(t *testing.T, capacity int, pol policy.Policy[string, string]) Cache[string, string] {
	t.Helper()
	c, err := New[string, string](Options[string, string]{
		Capacity: capacity,
		Shards:   1,
		Policy:   pol,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mustTwoQ(t *testing.T) policy.Policy[string, string] {
	t.Helper()
	p, err := twoq.New[string, string](twoq.DefaultA1Ratio)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func mustLRUK(t *testing.T, k int) policy.Policy[string, string] {
	t.Helper()
	p, err := lruk.New[string, string](k)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// ---- LRU-K ----

// A twice-touched ("warm") entry outlives a never-retouched one even though
// the warm entry's latest access is older than the cold insertion.
func TestPolicies_LRUK_ColdPreferredEviction(t *testing.T) {
	t.Parallel()

	c := newSingleShard(t, 2, mustLRUK(t, 2))

	c.Set("1", "a")
	c.Set("2", "b")
	c.Get("1")      // "1" is warm now
	c.Set("3", "c") // over capacity: cold "2" goes, not warm "1"

	if _, ok := c.Get("2"); ok {
		t.Fatal("cold entry 2 must be evicted")
	}
	if v, ok := c.Get("1"); !ok || v != "a" {
		t.Fatal("warm entry 1 must survive")
	}
	if _, ok := c.Get("3"); !ok {
		t.Fatal("entry 3 must be present")
	}
}

// K=1 must behave exactly like plain LRU.
func TestPolicies_LRUK_K1BehavesLikeLRU(t *testing.T) {
	t.Parallel()

	c := newSingleShard(t, 2, mustLRUK(t, 1))

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a")      // promote
	c.Set("c", "3") // evict least recent = b

	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a must survive")
	}
}

// ---- 2Q ----

// seedAm routes a key into the mature queue: admit, churn it into the ghost
// set, then re-admit (the second admission is the promotion).
func seedAm(c Cache[string, string], key string, churn *int) {
	c.Set(key, "v:"+key)
	*churn++
	c.Set(fmt.Sprintf("churn:%d", *churn), "x") // push key out of A1in
	c.Set(key, "v:"+key)                        // ghost hit -> Am
}

// Single-touch scan traffic must never evict Am residents.
func TestPolicies_TwoQ_ScanResistance(t *testing.T) {
	t.Parallel()

	c := newSingleShard(t, 4, mustTwoQ(t)) // a1 quota = 1, am = 3

	var churn int
	for _, k := range []string{"A", "B", "C"} {
		seedAm(c, k, &churn)
	}

	// Stream 100 distinct one-time keys through the cache.
	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("scan:%d", i), "x")
	}

	for _, k := range []string{"A", "B", "C"} {
		if v, ok := c.Get(k); !ok || v != "v:"+k {
			t.Fatalf("Am resident %s must survive the scan", k)
		}
	}
	if c.Len() > 4 {
		t.Fatalf("capacity exceeded: %d", c.Len())
	}
}

// A key re-admitted while its ghost is live lands directly in Am: it then
// survives churn that would flush any probationary entry.
func TestPolicies_TwoQ_GhostPromotion(t *testing.T) {
	t.Parallel()

	c := newSingleShard(t, 4, mustTwoQ(t))

	c.Set("1", "a")
	c.Set("x", "churn") // "1" falls out of A1in into A1out
	if _, ok := c.Get("1"); ok {
		t.Fatal("ghosts must not serve values")
	}

	c.Set("1", "a2") // second admission -> Am
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("churn:%d", i), "x")
	}
	if v, ok := c.Get("1"); !ok || v != "a2" {
		t.Fatal("promoted entry must sit in Am, immune to probation churn")
	}
}

// ---- ARC ----

// Entries with repeat access migrate to the frequency side and survive a
// one-time scan that flushes the recency side.
func TestPolicies_ARC_ScanResistance(t *testing.T) {
	t.Parallel()

	c := newSingleShard(t, 4, arc.New[string, string]())

	// Build a hot set with repeat touches (T2 residents).
	c.Set("h1", "1")
	c.Set("h2", "2")
	c.Get("h1")
	c.Get("h2")

	// Scan: one-time keys land in T1 and are shed from there.
	for i := 0; i < 50; i++ {
		c.Set(fmt.Sprintf("scan:%d", i), "x")
	}

	if _, ok := c.Get("h1"); !ok {
		t.Fatal("frequent entry h1 must survive the scan")
	}
	if _, ok := c.Get("h2"); !ok {
		t.Fatal("frequent entry h2 must survive the scan")
	}
}

// Under a scan-polluted workload with a reused hot set, ARC's ghost
// feedback keeps the hot set resident where plain LRU loses it every round.
func TestPolicies_ARC_BeatsLRUOnMixedWorkload(t *testing.T) {
	t.Parallel()

	const capacity = 8

	run := func(pol policy.Policy[string, string]) int {
		c, err := New[string, string](Options[string, string]{
			Capacity: capacity,
			Shards:   1,
			Policy:   pol,
		})
		if err != nil {
			t.Fatal(err)
		}
		defer func() { _ = c.Close() }()

		hot := func(i int) string { return fmt.Sprintf("hot:%d", i) }

		// Seed the hot set with two touches each.
		for i := 0; i < 4; i++ {
			c.Set(hot(i), "v")
			c.Get(hot(i))
		}

		hits := 0
		for round := 0; round < 20; round++ {
			// Scan burst wider than capacity, every key touched once.
			for i := 0; i < 12; i++ {
				c.Set(fmt.Sprintf("cold:%d:%d", round, i), "v")
			}
			// Revisit the hot set.
			for i := 0; i < 4; i++ {
				if _, ok := c.Get(hot(i)); ok {
					hits++
					continue
				}
				c.Set(hot(i), "v")
				c.Get(hot(i))
			}
		}
		return hits
	}

	lruPol, err := lruk.New[string, string](1) // plain LRU order
	if err != nil {
		t.Fatal(err)
	}
	arcHits := run(arc.New[string, string]())
	lruHits := run(lruPol)
	if arcHits <= lruHits {
		t.Fatalf("ARC must out-hit LRU under scan pollution: arc=%d lru=%d",
			arcHits, lruHits)
	}
}

// Ghost sets never serve values.
func TestPolicies_ARC_NoValueLeakThroughGhosts(t *testing.T) {
	t.Parallel()

	c := newSingleShard(t, 2, arc.New[string, string]())

	c.Set("1", "a")
	c.Set("2", "b")
	c.Set("3", "c") // "1" evicted into B1

	if _, ok := c.Get("1"); ok {
		t.Fatal("a ghosted key must miss until re-inserted")
	}
	c.Set("1", "a2") // B1 hit, fully re-inserted
	if v, ok := c.Get("1"); !ok || v != "a2" {
		t.Fatal("re-inserted key must hit with the new value")
	}
}

// ---- SIEVE ----

// A hit buys immunity for exactly one pass of the hand: the twice-touched
// entry survives the first sweep and falls on the next one that reaches it
// with no intervening hit.
func TestPolicies_SIEVE_SingleBitSemantics(t *testing.T) {
	t.Parallel()

	c := newSingleShard(t, 3, sieve.New[string, string]())

	c.Set("a", "1")
	c.Get("a")
	c.Get("a") // twice-touched, still one bit
	c.Set("b", "2")
	c.Set("c", "3")

	// First sweep: a (tail) is spared, its bit cleared; clean b goes.
	// Checking b is a miss, so it cannot re-mark anything.
	c.Set("d", "4")
	if _, ok := c.Get("b"); ok {
		t.Fatal("b must be the first eviction; a is spared by its bit")
	}
	if c.Len() != 3 {
		t.Fatalf("exactly one eviction expected, len=%d", c.Len())
	}

	// Mark the survivors between the hand and the head so the next sweep
	// wraps all the way back to a — which has had no intervening hit.
	c.Get("c")
	c.Get("d")
	c.Set("e", "5")
	if _, ok := c.Get("a"); ok {
		t.Fatal("a must fall on the next sweep once its bit is spent")
	}
	for _, k := range []string{"c", "d", "e"} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("%s must be resident", k)
		}
	}
}

// A single Set whose cost exceeds the whole budget must return (shedding
// the entry it just admitted) rather than spin looking for another victim.
func TestPolicies_SIEVE_OversizedEntryUnderCostPressure(t *testing.T) {
	t.Parallel()

	c, err := New[string, int](Options[string, int]{
		Capacity: 4,
		Shards:   1,
		Policy:   sieve.New[string, int](),
		Cost:     func(v int) int { return v },
		MaxCost:  10,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Set("big", 100)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Set must return even when the new entry is the only candidate")
	}

	if _, ok := c.Get("big"); ok {
		t.Fatal("an entry over the whole cost budget cannot stay resident")
	}
	if c.Len() != 0 {
		t.Fatalf("cache must be empty, len=%d", c.Len())
	}

	// The instance stays usable for entries that fit.
	c.Set("small", 3)
	if _, ok := c.Get("small"); !ok {
		t.Fatal("a fitting entry must be accepted afterwards")
	}
}

// ---- cross-policy properties ----

// After every put, len() <= capacity — for each policy, under a random
// mixed workload.
func TestPolicies_CapacityInvariant(t *testing.T) {
	t.Parallel()

	arcPol := arc.New[string, string]()
	sievePol := sieve.New[string, string]()
	lrukPol := mustLRUK(t, 2)
	twoqPol := mustTwoQ(t)

	pols := map[string]policy.Policy[string, string]{
		"lru":   nil, // default
		"lruk":  lrukPol,
		"twoq":  twoqPol,
		"arc":   arcPol,
		"sieve": sievePol,
	}

	for name, pol := range pols {
		pol := pol
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			const capacity = 16
			c, err := New[string, string](Options[string, string]{
				Capacity: capacity,
				Shards:   1,
				Policy:   pol,
			})
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { _ = c.Close() })

			r := rand.New(rand.NewSource(42))
			for i := 0; i < 5_000; i++ {
				k := fmt.Sprintf("k:%d", r.Intn(64))
				switch r.Intn(10) {
				case 0:
					c.Remove(k)
				case 1, 2, 3:
					c.Get(k)
				default:
					c.Set(k, "v")
				}
				if n := c.Len(); n > capacity {
					t.Fatalf("len %d exceeds capacity %d after op %d", n, capacity, i)
				}
			}
		})
	}
}

// panicPolicy blows up on the first hit; used to verify poisoning.
type panicPolicy[K comparable, V any] struct{}

func (panicPolicy[K, V]) New(h policy.Hooks[K, V], _ int) policy.ShardPolicy[K, V] {
	return &panicShard[K, V]{h: h}
}

type panicShard[K comparable, V any] struct{ h policy.Hooks[K, V] }

func (p *panicShard[K, V]) OnAdd(n policy.Node[K, V]) policy.Node[K, V] {
	p.h.PushFront(n)
	return nil
}
func (p *panicShard[K, V]) OnGet(policy.Node[K, V])    { panic("policy invariant violated") }
func (p *panicShard[K, V]) OnUpdate(policy.Node[K, V]) {}
func (p *panicShard[K, V]) OnEvict(policy.Node[K, V])  {}
func (p *panicShard[K, V]) OnRemove(policy.Node[K, V]) {}
func (p *panicShard[K, V]) Victim() policy.Node[K, V]  { return p.h.Back() }

// A panic inside a policy callback permanently fails the instance: every
// later call reports the same fatal condition instead of serving
// possibly-inconsistent state.
func TestPolicies_PanicPoisonsInstance(t *testing.T) {
	t.Parallel()

	c, err := New[string, string](Options[string, string]{
		Capacity: 4,
		Shards:   1,
		Policy:   panicPolicy[string, string]{},
	})
	if err != nil {
		t.Fatal(err)
	}

	c.Set("a", "1")

	mustPanic := func(want any, f func()) {
		t.Helper()
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic")
			}
			if want != nil && r != want {
				t.Fatalf("want panic %v, got %v", want, r)
			}
		}()
		f()
	}

	mustPanic(nil, func() { c.Get("a") })                  // original panic propagates
	mustPanic(ErrPoisoned, func() { c.Get("a") })          // deterministic from here on
	mustPanic(ErrPoisoned, func() { c.Set("b", "2") })     // writes too
	mustPanic(ErrPoisoned, func() { _, _ = c.Remove("a") })
}
