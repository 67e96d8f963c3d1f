package lsprpc

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
)

// A NotifyHandler handles an inbound notification. It receives the raw
// encoded params (nil if the notification had none) and reports an error
// only for logging; per spec, a notification handler's error is never sent
// anywhere, since there is no reply channel for a notification.
type NotifyHandler func(ctx context.Context, params json.RawMessage) error

// A CallHandler handles an inbound call and must produce exactly one reply.
// The common case is to return (result, nil) or (nil, err) and let the
// dispatcher deliver it automatically.
//
// A handler that needs to reply from elsewhere — forwarding the Reply-Once
// handle to a worker goroutine, or parking it inside an outbound-call
// continuation (spec.md §4.4, §5) — fetches it with ReplyFromContext,
// transfers it to wherever will eventually call Result or Error on it, and
// returns (nil, ErrReplyDeferred) so the dispatcher suppresses its own
// automatic reply. If the handle is then dropped without ever being used
// (including the case where a handler takes it and simply never replies),
// the GC finalizer synthesizes the "server failed to reply" error; see
// reply.go.
//
// A handler may also reply synchronously through the context handle and
// return (nil, nil); the dispatcher checks whether the handle was already
// used before delivering the returned value, so it never double-replies.
type CallHandler func(ctx context.Context, params json.RawMessage) (any, error)

// ErrReplyDeferred signals that a CallHandler has taken ownership of its
// Reply-Once handle via ReplyFromContext and will reply (or not) from
// somewhere other than the handler's own return value. See CallHandler.
var ErrReplyDeferred = errors.New("lsprpc: reply deferred by handler")

// A Handler is either a NotifyHandler or a CallHandler, as assigned by an
// Assigner. The dispatcher type-switches on the concrete type to decide how
// to invoke it.
type Handler any

// An Assigner assigns a Handler to a method name, or nil if the method is
// unknown. The implementation may inspect the inbound envelope via
// EnvelopeFromContext to decide, e.g., whether a call and notification of
// the same name should route differently.
type Assigner interface {
	Assign(ctx context.Context, method string) Handler
}

// Namer is an optional extension interface an Assigner may implement to
// expose its method names, e.g. for diagnostics.
type Namer interface {
	Names() []string
}

// MapAssigner is a trivial Assigner backed by a static map of method names
// to handlers.
type MapAssigner map[string]Handler

// Assign implements Assigner.
func (m MapAssigner) Assign(_ context.Context, method string) Handler { return m[method] }

// Names implements Namer.
func (m MapAssigner) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServiceMapper composes multiple Assigners under "Service.Method" names,
// the way an LSP endpoint might separate "textDocument" and "workspace"
// method families without flattening them into one map.
type ServiceMapper map[string]Assigner

// Assign implements Assigner by splitting method on the first ".".
func (m ServiceMapper) Assign(ctx context.Context, method string) Handler {
	parts := strings.SplitN(method, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	if ass, ok := m[parts[0]]; ok {
		return ass.Assign(ctx, parts[1])
	}
	return nil
}

// Names implements Namer.
func (m ServiceMapper) Names() []string {
	var all []string
	for svc, ass := range m {
		if namer, ok := ass.(Namer); ok {
			for _, name := range namer.Names() {
				all = append(all, svc+"."+name)
			}
		} else {
			all = append(all, svc+".*")
		}
	}
	sort.Strings(all)
	return all
}

// RegisterCall adapts a typed call handler fn(ctx, *P) (R, error) into a
// CallHandler that decodes params into P and encodes the result. This plays
// the role the teacher fills with reflection (handler.New / jrpc2.NewMethod);
// Go generics let the common one-argument case be expressed without it.
func RegisterCall[P, R any](fn func(context.Context, *P) (R, error)) CallHandler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var p P
		if len(raw) != 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, errInvalidRequest.WithData(err.Error())
			}
		}
		return fn(ctx, &p)
	}
}

// RegisterNotification adapts a typed notification handler fn(ctx, *P) error
// the same way RegisterCall does for calls.
func RegisterNotification[P any](fn func(context.Context, *P) error) NotifyHandler {
	return func(ctx context.Context, raw json.RawMessage) error {
		var p P
		if len(raw) != 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return errInvalidRequest.WithData(err.Error())
			}
		}
		return fn(ctx, &p)
	}
}

// RegisterRawCall and RegisterRawNotification cover the handlers that want
// the undecoded params (for example, a diagnostic bridge that just forwards
// bytes) without forcing a reflective escape hatch.

// RegisterRawCall adapts fn, which already accepts json.RawMessage, to a
// CallHandler. It exists for symmetry with RegisterCall; fn can simply be
// used directly as a CallHandler, since the two signatures coincide.
func RegisterRawCall(fn CallHandler) CallHandler { return fn }

// RegisterRawNotification is the NotifyHandler analog of RegisterRawCall.
func RegisterRawNotification(fn NotifyHandler) NotifyHandler { return fn }
