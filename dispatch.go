package lsprpc

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
)

// dispatch implements spec.md §4.3's per-envelope decision sequence:
//
//  1. "exit" notification stops the serve loop.
//  2. "$/cancelRequest" notification is delegated to the Cancellation
//     Registry and never reaches the Assigner.
//  3. Before initialization completes, any call other than "initialize"
//     is rejected with ServerNotInitialized; notifications other than
//     "initialized" are dropped.
//  4. Otherwise the Assigner is consulted; an unmapped method yields
//     MethodNotFound for a call, and is silently dropped for a
//     notification (spec.md §4.2).
//  5. A matched handler runs on the worker pool, bounded by e.sem.
//
// dispatch returns stop: true if the envelope was "exit" and the serve loop
// should terminate. dispatch itself never fails on bad input: a malformed
// envelope that carries an ID gets an error reply, and one without an ID is
// dropped.
func (e *Endpoint) dispatch(ctx context.Context, env *Envelope) (stop bool) {
	if env.ParseError() != nil {
		if env.ID != nil {
			e.writeEnvelope(NewErrorReply(env.ID, env.ParseError()))
		}
		return false
	}

	switch {
	case env.IsReply():
		e.handleReply(env)
		return false

	case env.Method == "exit":
		return true

	case env.Method == "$/cancelRequest":
		e.handleCancelNotification(env)
		return false

	case env.IsNotification():
		e.handleNotification(ctx, env)
		return false

	case env.IsCall():
		e.handleCall(ctx, env)
		return false
	}
	return false
}

func (e *Endpoint) handleReply(env *Envelope) {
	id, err := strconv.ParseInt(env.IDString(), 10, 64)
	if err != nil {
		// Non-integer outbound IDs are never issued by this Endpoint
		// (spec.md §9's resolved Open Question); a reply we can't match
		// to an outbound call is logged and dropped.
		e.logf("dispatch: reply with unparseable id %q dropped", env.IDString())
		return
	}
	cont, ok := e.outbound.claim(id)
	if !ok {
		e.logf("dispatch: reply to unknown outbound call %d dropped", id)
		return
	}
	cont(env)
}

func (e *Endpoint) handleCancelNotification(env *Envelope) {
	var params struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(env.Params, &params); err != nil {
		e.logf("dispatch: malformed $/cancelRequest params: %v", err)
		return
	}
	e.cancels.cancel(string(fixID(params.ID)))
}

func (e *Endpoint) handleNotification(ctx context.Context, env *Envelope) {
	if !e.initialized.Load() && env.Method != "initialized" {
		return // spec.md §4.3: notifications before init are dropped, not errored
	}
	handler := e.assign(ctx, env)
	nh, ok := handler.(NotifyHandler)
	if handler == nil || !ok {
		return // unknown method, or a CallHandler registered for a notification: drop
	}

	e.runInPool(func() {
		hctx := e.dispatchContext(ctx, env, nil)
		if err := nh(hctx, env.Params); err != nil {
			e.logf("notification %s: handler error: %v", env.Method, err)
		}
	})
}

func (e *Endpoint) handleCall(ctx context.Context, env *Envelope) {
	e.metrics.Count("requests", 1)
	if env.Method == "shutdown" {
		// spec.md §9: the dispatcher only records that shutdown was
		// requested before exit; process-exit-code policy is the
		// embedder's concern (see ShutdownRequested).
		e.shutdownRequested.Store(true)
	}
	if !e.initialized.Load() && env.Method != "initialize" {
		e.writeEnvelope(NewErrorReply(env.ID, errNotInitialized))
		return
	}

	handler := e.assign(ctx, env)
	ch, ok := handler.(CallHandler)
	if handler == nil || !ok {
		e.writeEnvelope(NewErrorReply(env.ID, errNoSuchMethod))
		return
	}

	hctx, cancel := context.WithCancel(ctx)
	teardown := e.cancels.register(env.IDString(), cancel)
	span := StartSpan(env.Method, env.Params, false, nil)
	method := env.Method

	reply := newReply(env.ID, method, span, func(out *Envelope) {
		if method == "initialize" && out.Err == nil {
			e.initialized.Store(true)
		}
		e.writeEnvelope(out)
	}, e.logf)

	e.runInPool(func() {
		defer teardown()
		defer cancel()

		dctx := e.dispatchContext(hctx, env, reply)
		result, err := ch(dctx, env.Params)
		if reply.Replied() {
			return // the handler delivered its own reply via ReplyFromContext
		}
		if errors.Is(err, ErrReplyDeferred) {
			// Ownership of the Reply-Once handle was transferred elsewhere
			// (a worker goroutine, an outbound-call continuation); the
			// dispatcher must not also reply. See CallHandler's doc comment.
			return
		}
		if err != nil {
			if hctx.Err() == context.Canceled {
				reply.Error(errRequestCancelled)
			} else {
				reply.Error(err)
			}
			return
		}
		reply.Result(result)
	})
}

// assign consults e.assigner, with EnvelopeFromContext available to it.
func (e *Endpoint) assign(ctx context.Context, env *Envelope) Handler {
	if e.assigner == nil {
		return nil
	}
	return e.assigner.Assign(withEnvelope(ctx, env), env.Method)
}

// dispatchContext builds the ambient context a handler observes: Endpoint,
// Envelope, offset encoding, Reply (nil for notifications), and trace Span.
func (e *Endpoint) dispatchContext(ctx context.Context, env *Envelope, reply *Reply) context.Context {
	ctx = withEndpoint(ctx, e)
	ctx = withEnvelope(ctx, env)
	ctx = withOffsetEncoding(ctx, e.offsetEncoding())
	if reply != nil {
		ctx = withReply(ctx, reply)
		if reply.span != nil {
			ctx = withSpan(ctx, reply.span)
		}
	}
	return ctx
}

// runInPool runs fn on the worker pool, bounded by e.sem, synchronously
// acquiring a slot on the calling (dispatch) goroutine so that Stop's
// graceful drain can simply wait for e.wg.
func (e *Endpoint) runInPool(fn func()) {
	e.wg.Add(1)
	e.sem.Acquire(context.Background(), 1)
	go func() {
		defer e.wg.Done()
		defer e.sem.Release(1)
		fn()
	}()
}
