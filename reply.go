package lsprpc

import (
	"encoding/json"
	"runtime"
	"sync/atomic"

	"github.com/golangls/lsprpc/code"
)

// A Reply is the move-only handle for replying to a single inbound call
// (spec.md §4.4). Exactly one of Result or Error must eventually be sent
// through it. Go has no destructors or affine types, so "move-only" here is
// enforced at runtime rather than compile time: a compare-and-swap flag
// rejects a second reply, and a finalizer synthesizes the missing reply if
// the handle is dropped (garbage collected) without one, mirroring the
// deferred "did not reply" check in golang-tools/internal/jsonrpc2's
// Conn.Run, but asynchronous because spec.md allows a handler to forward
// the handle to a goroutine and return before replying.
type Reply struct {
	id      json.RawMessage
	method  string
	replied atomic.Bool
	send    func(*Envelope)
	span    *Span
	logf    func(string, ...any)
}

// newReply constructs a Reply for the given call ID and installs the
// GC-time safety net. send is called at most once, under the Endpoint's
// writer-lock discipline (endpoint.go), with the completed reply Envelope.
// logf receives the "replied twice" diagnostic if the handle is ever
// misused; a nil logf falls back to the package default logger.
func newReply(id json.RawMessage, method string, span *Span, send func(*Envelope), logf func(string, ...any)) *Reply {
	if logf == nil {
		logf = defaultLogger
	}
	r := &Reply{id: id, method: method, send: send, span: span, logf: logf}
	runtime.SetFinalizer(r, (*Reply).abandon)
	return r
}

// Result sends a successful reply with the given JSON-marshalable value. A
// second call to Result or Error after the Reply has already been used is
// logged and otherwise ignored (spec.md §4.8, §7's double-reply row), not
// treated as fatal: the handle has no way to stop a racing continuation
// from also trying to reply, so the dispatcher must tolerate the race
// rather than crash the process over it.
func (r *Reply) Result(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.Error(Errorf(code.InternalError, "marshal result: %v", err))
		return
	}
	r.deliver(NewResultReply(r.id, data))
}

// Error sends a failed reply. If err is not already of type *Error, it is
// wrapped as an InternalError.
func (r *Reply) Error(err error) {
	r.deliver(NewErrorReply(r.id, asError(err)))
}

// Replied reports whether this Reply has already been used, either by the
// handler itself or by the GC finalizer's abandon fallback. The dispatcher
// consults this after a CallHandler returns, so a handler that replies
// itself (see CallHandler's doc comment) and then returns (nil, nil) is
// not double-replied to.
func (r *Reply) Replied() bool { return r.replied.Load() }

func (r *Reply) deliver(e *Envelope) {
	if !r.replied.CompareAndSwap(false, true) {
		r.logf("lsprpc: replied twice to call %s (%s); ignoring the second reply", string(r.id), r.method)
		return
	}
	runtime.SetFinalizer(r, nil)
	r.span.Finish()
	r.send(e)
}

// abandon is the finalizer invoked if a Reply is garbage collected without
// ever being used: it synthesizes the InternalError("server failed to
// reply") response spec.md §4.4 requires, exactly as
// golang-tools/internal/jsonrpc2's Conn.Run does synchronously at the end
// of each request goroutine. It is also callable directly so tests can
// exercise the behavior without waiting on GC timing.
func (r *Reply) abandon() {
	if r.replied.CompareAndSwap(false, true) {
		r.span.Finish()
		r.send(NewErrorReply(r.id, &Error{Code: code.InternalError, Message: "server failed to reply"}))
	}
}

// asError coerces err to *Error, wrapping unrecognized errors as
// InternalError the way a handler that merely returns `error` expects.
func asError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Errorf(code.InternalError, "%v", err)
}
