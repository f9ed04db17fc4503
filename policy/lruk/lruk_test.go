package lruk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkuzmenko/polycache/policy"
)

type testNode[K comparable, V any] struct {
	k K
	v V
}

func (n *testNode[K, V]) Key() K    { return n.k }
func (n *testNode[K, V]) Value() *V { return &n.v }

// LRU-K never touches the shard list; the hooks exist only to satisfy the
// factory signature.
type noopHooks[K comparable, V any] struct{}

func (noopHooks[K, V]) MoveToFront(policy.Node[K, V])            {}
func (noopHooks[K, V]) PushFront(policy.Node[K, V])              {}
func (noopHooks[K, V]) Remove(policy.Node[K, V])                 {}
func (noopHooks[K, V]) Front() policy.Node[K, V]                 { return nil }
func (noopHooks[K, V]) Back() policy.Node[K, V]                  { return nil }
func (noopHooks[K, V]) Prev(policy.Node[K, V]) policy.Node[K, V] { return nil }
func (noopHooks[K, V]) Next(policy.Node[K, V]) policy.Node[K, V] { return nil }
func (noopHooks[K, V]) Len() int                                 { return 0 }

func newLRUK(t *testing.T, k, capacity int) *lruK[string, int] {
	t.Helper()
	f, err := New[string, int](k)
	require.NoError(t, err)
	return f.New(noopHooks[string, int]{}, capacity).(*lruK[string, int])
}

func TestLRUK_InvalidK(t *testing.T) {
	t.Parallel()

	_, err := New[string, int](0)
	assert.Error(t, err)
	_, err = New[string, int](-3)
	assert.Error(t, err)
}

// A cold entry (fewer than K accesses) is evicted before any warm entry,
// even when the warm entry's latest touch is older than the cold insertion.
func TestLRUK_ColdPreferredOverWarm(t *testing.T) {
	t.Parallel()

	p := newLRUK(t, 2, 4)

	n1 := &testNode[string, int]{k: "warm", v: 1}
	n2 := &testNode[string, int]{k: "cold", v: 2}

	p.OnAdd(n1) // tick 1
	p.OnGet(n1) // tick 2 -> warm (ring full)
	p.OnAdd(n2) // tick 3 -> cold, inserted after warm's last touch

	assert.Equal(t, policy.Node[string, int](n2), p.Victim(),
		"single-touch entry must be preferred for eviction")
}

// Among cold entries the smallest recorded tick wins.
func TestLRUK_OldestColdWins(t *testing.T) {
	t.Parallel()

	p := newLRUK(t, 2, 4)

	n1 := &testNode[string, int]{k: "a", v: 1}
	n2 := &testNode[string, int]{k: "b", v: 2}
	p.OnAdd(n1)
	p.OnAdd(n2)

	assert.Equal(t, policy.Node[string, int](n1), p.Victim())
}

// Among warm entries the smallest K-th-most-recent tick (the oldest tick in
// the ring) decides — backward K-distance, not plain recency.
func TestLRUK_BackwardKDistance(t *testing.T) {
	t.Parallel()

	p := newLRUK(t, 2, 4)

	n1 := &testNode[string, int]{k: "a", v: 1}
	n2 := &testNode[string, int]{k: "b", v: 2}

	p.OnAdd(n1) // a: [1]
	p.OnAdd(n2) // b: [2]
	p.OnGet(n2) // b: [2,3] warm
	p.OnGet(n1) // a: [1,4] warm; a's K-th access (1) older than b's (2)
	p.OnGet(n1) // a: [4,5]; now b's K-th access (2) is the oldest

	assert.Equal(t, policy.Node[string, int](n2), p.Victim())
}

// Ring length never exceeds K.
func TestLRUK_RingBounded(t *testing.T) {
	t.Parallel()

	p := newLRUK(t, 3, 4)

	n := &testNode[string, int]{k: "a", v: 1}
	p.OnAdd(n)
	for i := 0; i < 10; i++ {
		p.OnGet(n)
	}
	h := p.hist[n]
	require.NotNil(t, h)
	assert.Len(t, h.ticks, 3)
	assert.IsIncreasing(t, h.ticks)
}

// K=1 must reproduce plain LRU order.
func TestLRUK_K1DegeneratesToLRU(t *testing.T) {
	t.Parallel()

	p := newLRUK(t, 1, 4)

	n1 := &testNode[string, int]{k: "a", v: 1}
	n2 := &testNode[string, int]{k: "b", v: 2}
	n3 := &testNode[string, int]{k: "c", v: 3}

	p.OnAdd(n1)
	p.OnAdd(n2)
	p.OnAdd(n3)
	p.OnGet(n1) // a is now most recent; b is least

	assert.Equal(t, policy.Node[string, int](n2), p.Victim())
}

// Eviction and removal both drop the entry's ring.
func TestLRUK_CleanupDropsHistory(t *testing.T) {
	t.Parallel()

	p := newLRUK(t, 2, 4)

	n1 := &testNode[string, int]{k: "a", v: 1}
	n2 := &testNode[string, int]{k: "b", v: 2}
	p.OnAdd(n1)
	p.OnAdd(n2)

	p.OnEvict(n1)
	p.OnRemove(n2)
	assert.Empty(t, p.hist)
	assert.Nil(t, p.Victim())
}
