package lsprpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golangls/lsprpc/code"
)

// Error is the concrete type of errors returned from RPC calls, and is the
// JSON encoding of the JSON-RPC error object.
type Error struct {
	Code    code.Code       `json:"code"`              // the machine-readable error code
	Message string          `json:"message,omitempty"` // the human-readable error message
	Data    json.RawMessage `json:"data,omitempty"`    // optional ancillary error data
}

// Error returns a human-readable description of e.
func (e *Error) Error() string { return fmt.Sprintf("[%d] %s", e.Code, e.Message) }

// ErrCode reports the code carried by e.
func (e *Error) ErrCode() code.Code { return e.Code }

// WithData marshals v as JSON and constructs a copy of e whose Data field
// includes the result. If v == nil or if marshaling v fails, e is returned
// without modification.
func (e *Error) WithData(v any) *Error {
	if v == nil {
		return e
	} else if data, err := json.Marshal(v); err == nil {
		return &Error{Code: e.Code, Message: e.Message, Data: data}
	}
	return e
}

// errEndpointStopped is delivered to the outbound-call continuations still
// pending when the serve loop ends. Endpoint.Wait never reports it.
var errEndpointStopped = errors.New("the endpoint has been stopped")

// errEmptyMethod is the error reported for an empty request method name.
var errEmptyMethod = &Error{Code: code.InvalidRequest, Message: "empty method name"}

// errNoSuchMethod is the error reported for an unknown method name.
var errNoSuchMethod = &Error{Code: code.MethodNotFound, Message: code.MethodNotFound.Error()}

// errNotInitialized is the error reported for any call other than
// "initialize" received before initialization has completed.
var errNotInitialized = &Error{Code: code.ServerNotInitialized, Message: code.ServerNotInitialized.Error()}

// errInvalidRequest is the error reported when a call's (or notification's)
// params fail to decode into the handler's declared type (spec.md §4.2, §7:
// "for calls: Reply-Once is invoked with InvalidRequest('failed to decode
// request')").
var errInvalidRequest = &Error{Code: code.InvalidRequest, Message: "failed to decode request"}

// errRequestCancelled is the error replied to a call torn down by
// $/cancelRequest.
var errRequestCancelled = &Error{Code: code.RequestCancelled, Message: code.RequestCancelled.Error()}

// ErrConnClosed is returned by an endpoint's push-to-peer methods if they are
// called after the channel is closed.
var ErrConnClosed = errors.New("peer connection is closed")

// Errorf returns an error value of concrete type *Error having the specified
// code and formatted message string.
func Errorf(c code.Code, msg string, args ...any) *Error {
	return &Error{Code: c, Message: fmt.Sprintf(msg, args...)}
}
