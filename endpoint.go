package lsprpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golangls/lsprpc/channel"
	"github.com/golangls/lsprpc/metrics"
	"golang.org/x/sync/semaphore"
)

// An Endpoint runs one side of an LSP connection: it reads Envelopes off a
// channel.Channel, dispatches them to an Assigner's handlers, and writes
// replies and server-originated calls back out. This plays the role
// jrpc2.Server and jrpc2.Client played separately in the teacher library;
// LSP is symmetric (either peer can call the other), so this type merges
// both roles the way golang-tools/internal/jsonrpc2's Conn does.
//
// The zero Endpoint is not usable; construct one with NewEndpoint.
type Endpoint struct {
	assigner Assigner
	opts     *Options
	metrics  *metrics.M

	cancels  *cancelRegistry
	outbound *outboundRegistry
	sem      *semaphore.Weighted

	ch      channel.Channel
	writeMu sync.Mutex // held only around ch.Send; see the lock-ordering note below

	initialized       atomic.Bool
	shutdownRequested atomic.Bool
	offsetEnc         atomic.Value // string

	wg      sync.WaitGroup // in-flight handler goroutines
	donec   chan struct{}  // closed when the serve loop returns
	mu      sync.Mutex     // guards werr, stopped
	werr    error
	stopped bool
}

// NewEndpoint constructs an Endpoint that dispatches inbound calls and
// notifications to assigner. opts may be nil to accept every default
// (spec.md §4.8's options surface).
func NewEndpoint(assigner Assigner, opts *Options) *Endpoint {
	e := &Endpoint{
		assigner: assigner,
		opts:     opts,
		metrics:  metrics.New(),
		cancels:  newCancelRegistry(),
		outbound: newOutboundRegistry(opts.maxInFlightOutboundCalls()),
		sem:      opts.semaphore(),
		donec:    make(chan struct{}),
	}
	e.offsetEnc.Store(opts.defaultOffsetEncoding())
	e.outbound.onEvict = func(method string) {
		e.metrics.Count("outbound_evictions", 1)
		e.logf("outbound call to %q evicted: registry full", method)
	}
	return e
}

// Metrics returns the Endpoint's metrics collector, never nil.
func (e *Endpoint) Metrics() *metrics.M { return e.metrics }

func (e *Endpoint) offsetEncoding() string { return e.offsetEnc.Load().(string) }

// SetOffsetEncoding records the position encoding negotiated during
// initialization (spec.md §4.7), for subsequent handlers to observe via
// OffsetEncoding(ctx).
func (e *Endpoint) SetOffsetEncoding(enc string) { e.offsetEnc.Store(enc) }

// MarkInitialized opens the init gate (spec.md §4.3) without waiting for an
// inbound "initialize" call to succeed. The gate models the server side of
// the handshake: a server Endpoint starts gated and is opened by replying
// successfully to "initialize". An Endpoint playing the editor's role never
// receives its own "initialize" call, so callers that construct a
// client-side Endpoint should call MarkInitialized immediately.
func (e *Endpoint) MarkInitialized() { e.initialized.Store(true) }

// ShutdownRequested reports whether a "shutdown" call was dispatched
// before the session ended. The dispatcher only observes and records this
// (spec.md §9); deciding what process exit code, if any, that implies is
// left to the embedder.
func (e *Endpoint) ShutdownRequested() bool { return e.shutdownRequested.Load() }

func (e *Endpoint) logf(format string, args ...any) {
	e.opts.logger()(format, args...)
}

// Serve runs the dispatch loop over ch until the peer sends an "exit"
// notification, ch.Recv returns an error (including io.EOF), or Stop is
// called. It blocks until the loop and all in-flight handlers have
// finished, then returns the same error Wait would. Serve is not
// reentrant: call it once per Endpoint.
func (e *Endpoint) Serve(ch channel.Channel) error {
	e.ch = ch
	defer close(e.donec)

	for {
		data, err := ch.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				e.setErr(err)
			}
			break
		}
		e.metrics.CountAndSetMax("bytes_read", int64(len(data)))

		env, err := DecodeEnvelope(data)
		if err != nil {
			e.setErr(err)
			break
		}
		e.metrics.Count("messages_read", 1)

		if e.dispatch(context.Background(), env) {
			break
		}

		e.mu.Lock()
		stopped := e.stopped
		e.mu.Unlock()
		if stopped {
			break
		}
	}

	e.wg.Wait()
	e.outbound.cancelAll(errEndpointStopped)
	ch.Close()
	return e.Wait()
}

// writeEnvelope encodes and sends out, serialized against every other
// writer. This is the only place Send is called, and per spec.md §5's
// lock-ordering rule it must never be called while holding the
// cancellation or outbound registry's lock: both registries release their
// mutex before invoking a continuation or teardown that might, in turn,
// call back in here.
func (e *Endpoint) writeEnvelope(env *Envelope) {
	data, err := EncodeEnvelope(env)
	if err != nil {
		e.logf("encode outgoing message: %v", err)
		return
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if werr := e.ch.Send(data); werr != nil {
		e.logf("send outgoing message: %v", werr)
		return
	}
	e.metrics.CountAndSetMax("bytes_written", int64(len(data)))
	if env.Err != nil {
		e.metrics.Count("errors", 1)
	}
}

// Stop asks the serve loop to terminate after the current message, without
// waiting for an "exit" notification from the peer, and closes the channel.
// Stop does not interrupt a Recv already in progress: the loop ends once
// the next message arrives or the peer's side of the channel is closed.
// Serve still waits for in-flight handlers to finish, with no time bound;
// Options.ShutdownGraceSeconds only feeds ShutdownDeadline.
func (e *Endpoint) Stop() {
	e.mu.Lock()
	e.stopped = true
	e.mu.Unlock()
	if e.ch != nil {
		e.ch.Close()
	}
}

// Wait blocks until Serve has returned, and reports the error that ended
// the session: nil for a clean "exit", or the channel/decode error that
// stopped it otherwise.
func (e *Endpoint) Wait() error {
	<-e.donec
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.werr
}

func (e *Endpoint) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.werr == nil && !errors.Is(err, errEndpointStopped) {
		e.werr = err
	}
}

// Notify sends a server-originated notification (spec.md §4.6). It never
// waits for a reply, because notifications don't have one.
func (e *Endpoint) Notify(ctx context.Context, method string, params any) error {
	if !e.opts.allowPush() {
		return fmt.Errorf("lsprpc: outbound notifications disabled by Options.DisablePush")
	}
	select {
	case <-e.donec:
		return ErrConnClosed
	default:
	}
	raw, err := marshalParams(params)
	if err != nil {
		return err
	}
	span := StartSpan(method, raw, true, nil)
	defer span.Finish()
	e.writeEnvelope(NewNotification(method, raw))
	e.metrics.Count("outbound_notifications", 1)
	return nil
}

// Call sends a server-originated call and blocks until the peer replies, ctx
// is cancelled, or the Endpoint shuts down, whichever comes first.
func (e *Endpoint) Call(ctx context.Context, method string, params any) (*Envelope, error) {
	if !e.opts.allowPush() {
		return nil, fmt.Errorf("lsprpc: outbound calls disabled by Options.DisablePush")
	}
	select {
	case <-e.donec:
		return nil, ErrConnClosed
	default:
	}
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}

	replyc := make(chan *Envelope, 1)
	span := StartSpan(method, raw, true, nil)
	id := e.outbound.push(method, func(env *Envelope) {
		span.Finish()
		replyc <- env
	})

	e.writeEnvelope(NewCall(idToRaw(id), method, raw))
	e.metrics.CountAndSetMax("outbound_calls", 1)

	select {
	case env := <-replyc:
		return env, nil
	case <-ctx.Done():
		if _, ok := e.outbound.claim(id); ok {
			span.Finish()
		}
		return nil, ctx.Err()
	case <-e.donec:
		return nil, ErrConnClosed
	}
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(params)
}

// ShutdownDeadline returns the instant by which in-flight handlers should
// finish after Stop is called, per Options.ShutdownGraceSeconds.
func (e *Endpoint) ShutdownDeadline() time.Time {
	return time.Now().Add(time.Duration(e.opts.shutdownGraceSeconds()) * time.Second)
}
