package lsprpc

import (
	"encoding/json"
	"time"
)

// A Span records one RPC's lifetime: the method, direction, raw params, and
// duration. The real LSP-adjacent implementations this is grounded on
// (golang-tools/internal/jsonrpc2's rpcStats wired through
// telemetry/trace.StartSpan) attach a span per message and close it when the
// reply is written; that telemetry package lives under golang.org/x/tools
// and isn't importable from outside it, so Span reimplements the same shape
// as a small, self-contained type.
type Span struct {
	Method   string
	Params   json.RawMessage
	Outbound bool // true if this Endpoint originated the call/notification
	Start    time.Time
	done     bool
	finishFn func(*Span)
}

// StartSpan opens a Span for method with the given params, outbound
// indicating whether this side originated the message. finish, if non-nil,
// is invoked exactly once when the Span closes, receiving the completed
// Span (with Duration available via Elapsed).
func StartSpan(method string, params json.RawMessage, outbound bool, finish func(*Span)) *Span {
	return &Span{Method: method, Params: params, Outbound: outbound, Start: now(), finishFn: finish}
}

// Elapsed returns the time since the span started.
func (s *Span) Elapsed() time.Duration { return now().Sub(s.Start) }

// Finish closes the span. Calling Finish more than once has no additional
// effect.
func (s *Span) Finish() {
	if s == nil || s.done {
		return
	}
	s.done = true
	if s.finishFn != nil {
		s.finishFn(s)
	}
}

// now is a var so tests can stub time if ever needed; it is not itself a
// source of nondeterminism in production use.
var now = time.Now
