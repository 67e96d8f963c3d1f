package lsprpc

import "golang.org/x/sync/semaphore"

// Options configures the construction of an Endpoint. A nil *Options, or
// a zero-valued field on one, uses the stated default.
type Options struct {
	// Logger, if non-nil, receives diagnostic log lines the way
	// jrpc2.ServerOptions.Logger did for the teacher library. If nil,
	// Endpoint logs through the internal/lsplog default logger.
	Logger func(string, ...any)

	// Concurrency bounds the number of inbound calls and notifications the
	// Endpoint will run concurrently via its worker pool. Default 1 (process
	// requests one at a time, preserving arrival order for side effects).
	Concurrency int64

	// MaxInFlightOutboundCalls bounds the Outbound Call Registry (spec.md
	// §4.6). When full, the oldest entry is evicted and its continuation is
	// invoked with an error. Default 100.
	MaxInFlightOutboundCalls int

	// DefaultOffsetEncoding is the position encoding assumed before
	// "initialize" negotiates one explicitly (spec.md §4.7). Default "utf-16",
	// matching the LSP base specification's historical default.
	DefaultOffsetEncoding string

	// ShutdownGraceSeconds is the grace period Endpoint.ShutdownDeadline
	// reports for in-flight handlers after Stop. It is not enforced: Serve
	// waits for handlers without a time bound. Default 60.
	ShutdownGraceSeconds int

	// DisablePush forbids the Endpoint from sending server-originated calls
	// and notifications (Notify, Call); some embedders drive a strictly
	// request/response protocol and want this disabled to catch misuse
	// early. Default false (push allowed), so the zero Options permits it.
	DisablePush bool
}

func (o *Options) logger() func(string, ...any) {
	if o == nil || o.Logger == nil {
		return defaultLogger
	}
	return o.Logger
}

func (o *Options) concurrency() int64 {
	if o == nil || o.Concurrency <= 0 {
		return 1
	}
	return o.Concurrency
}

func (o *Options) maxInFlightOutboundCalls() int {
	if o == nil || o.MaxInFlightOutboundCalls <= 0 {
		return 100
	}
	return o.MaxInFlightOutboundCalls
}

func (o *Options) defaultOffsetEncoding() string {
	if o == nil || o.DefaultOffsetEncoding == "" {
		return "utf-16"
	}
	return o.DefaultOffsetEncoding
}

func (o *Options) shutdownGraceSeconds() int {
	if o == nil || o.ShutdownGraceSeconds <= 0 {
		return 60
	}
	return o.ShutdownGraceSeconds
}

func (o *Options) allowPush() bool {
	return o == nil || !o.DisablePush
}

func (o *Options) semaphore() *semaphore.Weighted {
	return semaphore.NewWeighted(o.concurrency())
}
