package strata

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// flightResult carries a resolved fetch through singleflight's any-typed
// channel.
type flightResult[V any] struct {
	value V
	ok    bool
}

// flightHandle tracks one executing fetch so it can be cancelled.
type flightHandle struct {
	cancel context.CancelFunc
}

// flightGroup coalesces concurrent fetches for the same key. The first
// caller's fetch runs on its own context, detached from any single awaiter,
// so an awaiter abandoning the wait does not cancel the shared fetch.
// cancelAll tears down every outstanding fetch; awaiters observe the
// cancellation as the flight's error.
type flightGroup[V any] struct {
	group   singleflight.Group
	mu      sync.Mutex
	flights map[string]*flightHandle
}

func newFlightGroup[V any]() *flightGroup[V] {
	return &flightGroup[V]{flights: make(map[string]*flightHandle)}
}

// do runs fn once per key, sharing the result with every concurrent caller.
// ctx only bounds this caller's wait; the fetch itself runs on a flight
// context owned by the group.
func (g *flightGroup[V]) do(ctx context.Context, key string, fn func(context.Context) (V, bool, error)) (V, bool, error) {
	ch := g.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithCancel(context.Background())
		h := &flightHandle{cancel: cancel}
		g.mu.Lock()
		g.flights[key] = h
		g.mu.Unlock()
		defer func() {
			cancel()
			g.mu.Lock()
			if g.flights[key] == h {
				delete(g.flights, key)
			}
			g.mu.Unlock()
		}()

		v, ok, err := fn(fctx)
		if err == nil && fctx.Err() != nil {
			err = fctx.Err()
		}
		if err != nil {
			return nil, err
		}
		return flightResult[V]{value: v, ok: ok}, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		r := res.Val.(flightResult[V])
		return r.value, r.ok, nil
	}
}

// cancelAll cancels every outstanding fetch and forgets their keys so that
// subsequent calls start fresh fetches.
func (g *flightGroup[V]) cancelAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, h := range g.flights {
		h.cancel()
		g.group.Forget(key)
		delete(g.flights, key)
	}
}

// len reports the number of fetches currently executing.
func (g *flightGroup[V]) len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.flights)
}
