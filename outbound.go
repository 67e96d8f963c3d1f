package lsprpc

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/golangls/lsprpc/code"
)

// outboundEntry is one pending server-to-peer call awaiting its reply.
type outboundEntry struct {
	id           int64
	method       string
	continuation func(*Envelope)
}

// outboundRegistry implements the Outbound Call Registry (spec.md §4.6): a
// bounded FIFO of (id, continuation) pairs. jrpc2.Server keeps this as an
// unbounded map (`s.call map[string]*Response`); spec.md instead requires a
// deterministic eviction order once MAX entries are outstanding, which a
// hash map cannot express, so this is an ordered slice. spec.md's own
// design note sanctions the resulting O(n) claim/cancel scan, since n is
// bounded by MAX and expected to be small: "do not 'improve' this to a hash
// map."
type outboundRegistry struct {
	mu      sync.Mutex
	max     int
	nextID  int64
	entries []outboundEntry

	onEvict func(method string) // metrics hook, may be nil
}

func newOutboundRegistry(max int) *outboundRegistry {
	return &outboundRegistry{max: max}
}

// push registers a new outbound call, assigning it the next sequential
// integer ID (spec.md §9: the endpoint only ever issues integer outbound
// IDs). If the registry is already at capacity, the oldest entry is
// evicted first and its continuation invoked with an error (spec.md §8 S4).
func (o *outboundRegistry) push(method string, continuation func(*Envelope)) int64 {
	o.mu.Lock()
	var evicted *outboundEntry
	if len(o.entries) >= o.max && o.max > 0 {
		victim := o.entries[0]
		o.entries = o.entries[1:]
		evicted = &victim
	}
	o.nextID++
	id := o.nextID
	o.entries = append(o.entries, outboundEntry{id: id, method: method, continuation: continuation})
	onEvict := o.onEvict
	o.mu.Unlock()

	if evicted != nil {
		if onEvict != nil {
			onEvict(evicted.method)
		}
		evicted.continuation(NewErrorReply(idToRaw(evicted.id), Errorf(code.InternalError,
			"failed to receive a client reply for request (%d)", evicted.id)))
	}
	return id
}

// claim removes and returns the continuation registered for id, if any.
func (o *outboundRegistry) claim(id int64) (func(*Envelope), bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, e := range o.entries {
		if e.id == id {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return e.continuation, true
		}
	}
	return nil, false
}

// cancelAll claims and fails every outstanding entry, used during Endpoint
// teardown so no continuation is left waiting forever.
func (o *outboundRegistry) cancelAll(err error) {
	o.mu.Lock()
	pending := o.entries
	o.entries = nil
	o.mu.Unlock()

	for _, e := range pending {
		e.continuation(NewErrorReply(idToRaw(e.id), asError(err)))
	}
}

// len reports the number of outstanding outbound calls, for diagnostics and
// tests.
func (o *outboundRegistry) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.entries)
}

func idToRaw(id int64) json.RawMessage { return json.RawMessage(strconv.FormatInt(id, 10)) }
