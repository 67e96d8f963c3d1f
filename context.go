package lsprpc

import "context"

// Context keys follow the unexported-struct-type pattern jrpc2/ctx.go uses
// for ServerFromContext/InboundRequest: a type no other package can forge,
// so values can only be injected by this package's own plumbing.
type (
	endpointKey struct{}
	envelopeKey struct{}
	offsetKey   struct{}
	replyKey    struct{}
	spanKey     struct{}
)

// EndpointFromContext returns the Endpoint that is running the handler
// associated with ctx, or nil if ctx was not derived from a call dispatched
// by an Endpoint.
func EndpointFromContext(ctx context.Context) *Endpoint {
	e, _ := ctx.Value(endpointKey{}).(*Endpoint)
	return e
}

// withEndpoint attaches e to ctx for the duration of a single dispatch.
func withEndpoint(ctx context.Context, e *Endpoint) context.Context {
	return context.WithValue(ctx, endpointKey{}, e)
}

// EnvelopeFromContext returns the inbound Envelope currently being
// dispatched. This is primarily useful for an Assigner wanting to inspect
// the raw message (spec.md §4.2's note that Assign may consult the
// request), since RegisterCall/RegisterNotification handlers instead
// receive decoded params directly.
func EnvelopeFromContext(ctx context.Context) *Envelope {
	e, _ := ctx.Value(envelopeKey{}).(*Envelope)
	return e
}

func withEnvelope(ctx context.Context, e *Envelope) context.Context {
	return context.WithValue(ctx, envelopeKey{}, e)
}

// OffsetEncoding reports the position encoding ("utf-8", "utf-16", "utf-32")
// negotiated for the current session, or the Endpoint's configured default
// before negotiation completes. Handlers that translate LSP Position values
// to byte offsets read this instead of hard-coding UTF-16 (spec.md §4.7).
func OffsetEncoding(ctx context.Context) string {
	if s, ok := ctx.Value(offsetKey{}).(string); ok {
		return s
	}
	return "utf-16"
}

func withOffsetEncoding(ctx context.Context, enc string) context.Context {
	return context.WithValue(ctx, offsetKey{}, enc)
}

// ReplyFromContext returns the move-only Reply handle for the call being
// dispatched, so a handler can transfer ownership of the reply into a
// goroutine or continuation and return immediately without replying itself
// (spec.md §4.4). It returns nil for a notification, which has no reply.
func ReplyFromContext(ctx context.Context) *Reply {
	r, _ := ctx.Value(replyKey{}).(*Reply)
	return r
}

func withReply(ctx context.Context, r *Reply) context.Context {
	return context.WithValue(ctx, replyKey{}, r)
}

// SpanFromContext returns the trace Span opened for the envelope currently
// being dispatched, or nil outside of dispatch.
func SpanFromContext(ctx context.Context) *Span {
	s, _ := ctx.Value(spanKey{}).(*Span)
	return s
}

func withSpan(ctx context.Context, s *Span) context.Context {
	return context.WithValue(ctx, spanKey{}, s)
}
