// Package singleflight coalesces duplicate in-flight work per key. The
// cache uses it to make sure a miss storm on one key runs the Loader once.
package singleflight

import (
	"context"
	"sync"
)

// Group runs at most one fn per key at a time; concurrent callers for the
// same key share the one result.
//
// The first caller for a key is the leader and runs fn. Followers wait on
// the call's done channel; publishing (val, err) happens-before close(done),
// so reads after <-done observe the final values. A follower's ctx
// cancellation unblocks only that follower, never the leader's fn; when the
// work itself must be cancellable, thread ctx into fn.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
}

// Do returns fn's result for key, running fn only if no flight for key is
// already in progress. A cancelled follower returns ctx.Err() while the
// leader keeps running.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	// Join an in-flight call if one exists.
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		done := c.done
		g.mu.Unlock()

		select {
		case <-done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	// We are the leader for this key.
	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	// Execute fn outside the lock.
	v, err := fn()

	// Publish result and wake followers.
	c.val, c.err = v, err
	close(c.done)

	// Remove the in-flight marker.
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return v, err
}
