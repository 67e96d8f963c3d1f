package lsprpc

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/golangls/lsprpc/code"
)

// TestReplyAbandonSynthesizesError covers S2 (spec.md §8): a handler that
// drops its Reply-Once handle without calling it still produces exactly one
// reply, an InternalError saying the server failed to reply. abandon is the
// finalizer body; it is exercised directly here rather than through actual
// GC timing, which abandon's doc comment calls out as the supported way
// to test this without a nondeterministic wait on the collector.
func TestReplyAbandonSynthesizesError(t *testing.T) {
	var got *Envelope
	r := newReply(json.RawMessage("7"), "test/drop", nil, func(e *Envelope) { got = e }, nil)
	r.abandon()

	if got == nil {
		t.Fatal("abandoning a Reply must synthesize a reply")
	}
	if got.Err == nil || got.Err.Code != code.InternalError {
		t.Fatalf("abandoned reply = %+v, want an InternalError", got.Err)
	}
}

// TestReplyDoubleCallIsLoggedAndIgnored covers S5: a handler that calls
// Result twice must not cause two reply frames to reach the wire, and the
// second call must be logged and ignored rather than crashing the process
// (spec.md §4.8, §7: "Double-reply is a bug detected at runtime (logged,
// ignored)").
func TestReplyDoubleCallIsLoggedAndIgnored(t *testing.T) {
	var frames []*Envelope
	var logged []string
	r := newReply(json.RawMessage("1"), "test/double", nil, func(e *Envelope) {
		frames = append(frames, e)
	}, func(format string, args ...any) {
		logged = append(logged, fmt.Sprintf(format, args...))
	})

	r.Result(map[string]string{"ok": "true"})
	r.Result(map[string]string{"ok": "true"}) // must not panic

	if len(frames) != 1 {
		t.Fatalf("wire received %d reply frames for one call, want exactly 1", len(frames))
	}
	if len(logged) != 1 {
		t.Fatalf("got %d log lines for the duplicate reply, want exactly 1", len(logged))
	}
}

func TestReplyResultThenAbandonIsNoop(t *testing.T) {
	var frames []*Envelope
	r := newReply(json.RawMessage("2"), "test/ok", nil, func(e *Envelope) {
		frames = append(frames, e)
	}, nil)
	r.Result("done")
	r.abandon() // simulates the finalizer firing after a legitimate reply

	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1 (abandon after a real reply must be a no-op)", len(frames))
	}
}

func TestAsError(t *testing.T) {
	if asError(nil) != nil {
		t.Error("asError(nil) should be nil")
	}
	wrapped := &Error{Code: code.InvalidParams, Message: "bad params"}
	if asError(wrapped) != wrapped {
		t.Error("asError should pass an existing *Error through unchanged")
	}
	generic := asError(errEndpointStopped)
	if generic.Code != code.InternalError {
		t.Errorf("asError of a plain error: got code %v, want InternalError", generic.Code)
	}
}
