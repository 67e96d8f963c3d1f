package lsprpc

import (
	"context"
	"sync"
)

// cancelEntry pairs a cancellation function with a cookie that
// disambiguates it from whatever registration may follow it under the same
// ID. jrpc2.Server's own `used map[string]context.CancelFunc` does not need
// this, because it only ever holds one registration per ID within a single
// request's lifetime; spec.md §4.5 additionally requires that tearing down
// an *earlier* call under a reused ID must not cancel a *later* call that
// has since claimed the same ID (the teardown only erases the entry if its
// cookie still matches what's stored).
type cancelEntry struct {
	cancel context.CancelFunc
	cookie uint32
}

// cancelRegistry implements the Cancellation Registry (spec.md §4.5): a map
// from stringified inbound call ID to the context.CancelFunc that will
// unblock that call's handler, guarded by a single mutex (one of the three
// coarse-grained locks spec.md §5 calls for).
type cancelRegistry struct {
	mu      sync.Mutex
	entries map[string]cancelEntry
	next    uint32
}

func newCancelRegistry() *cancelRegistry {
	return &cancelRegistry{entries: make(map[string]cancelEntry)}
}

// register records cancel under id, tagged with a fresh cookie identifying
// this registration, and returns a teardown func to call (typically via
// defer) when the handler returns.
func (c *cancelRegistry) register(id string, cancel context.CancelFunc) (teardown func()) {
	c.mu.Lock()
	c.next++
	cookie := c.next
	c.entries[id] = cancelEntry{cancel: cancel, cookie: cookie}
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		if e, ok := c.entries[id]; ok && e.cookie == cookie {
			delete(c.entries, id)
		}
		c.mu.Unlock()
	}
}

// cancel invokes the CancelFunc currently registered for id, if any, and
// reports whether one was found. This is the effect of an inbound
// $/cancelRequest notification (spec.md §4.3, §4.5).
func (c *cancelRegistry) cancel(id string) bool {
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()
	if ok {
		e.cancel()
	}
	return ok
}

// len reports the number of calls currently cancellable, for diagnostics
// and tests.
func (c *cancelRegistry) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
