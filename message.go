package lsprpc

import (
	"bytes"
	"encoding/json"

	"github.com/golangls/lsprpc/code"
)

// Version is the JSON-RPC protocol version this package implements.
const Version = "2.0"

// An Envelope is the wire form of a single JSON-RPC message. The Language
// Server Protocol base protocol never batches messages (unlike bare
// JSON-RPC 2.0), so unlike the envelope type this one replaces, Envelope
// never represents more than one message.
//
// Exactly one of the following is true of a well-formed Envelope:
//
//   - It is a Notification: Method != "", ID == nil, Err == nil, Result == nil.
//   - It is a Call: Method != "", ID != nil.
//   - It is a Reply: Method == "", ID != nil, and either Err != nil or Result != nil.
type Envelope struct {
	ID     json.RawMessage // preserved verbatim: a JSON number or JSON string, or nil
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Err    *Error

	parseErr *Error // set if this envelope failed to parse; other fields may be incomplete
}

// IsNotification reports whether e is an inbound notification.
func (e *Envelope) IsNotification() bool { return e.Method != "" && e.ID == nil }

// IsCall reports whether e is an inbound call awaiting a reply.
func (e *Envelope) IsCall() bool { return e.Method != "" && e.ID != nil }

// IsReply reports whether e is a reply to an outbound call.
func (e *Envelope) IsReply() bool { return e.Method == "" && e.ID != nil }

// IDString returns the verbatim JSON encoding of the ID field, used as the
// map/registry key for cancellation and outbound-call bookkeeping. The empty
// string denotes "no ID" (a notification).
func (e *Envelope) IDString() string { return string(e.ID) }

// DecodeEnvelope parses a single JSON-RPC message from data. Its error
// result is always nil: data that is not a JSON object yields an Envelope
// whose parseErr has code ParseError, and semantic problems (bad version
// marker, mixed request/reply fields, invalid ID, ...) are likewise
// recorded in the returned Envelope's parseErr, mirroring the
// "defer validation to use" approach of the message readers in this corpus.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return &Envelope{parseErr: &Error{Code: code.ParseError, Message: "message is not a JSON object"}}, nil
	}

	e := new(Envelope)
	var version string
	var extra []string
	var hasMethodKey bool
	for key, val := range obj {
		switch key {
		case "jsonrpc":
			if json.Unmarshal(val, &version) != nil {
				e.fail(code.ParseError, "invalid version key")
			}
		case "id":
			if isValidID(val) {
				e.ID = fixID(val)
			} else {
				e.fail(code.InvalidRequest, "invalid message ID")
			}
		case "method":
			hasMethodKey = true
			if json.Unmarshal(val, &e.Method) != nil {
				e.fail(code.ParseError, "invalid method name")
			}
		case "params":
			if !isNullJSON(val) {
				e.Params = val
			}
			if fb := firstNonSpace(e.Params); fb != 0 && fb != '[' && fb != '{' {
				e.fail(code.InvalidRequest, "params must be array or object")
			}
		case "result":
			e.Result = val
		case "error":
			if json.Unmarshal(val, &e.Err) != nil {
				e.fail(code.ParseError, "invalid error value")
			}
		default:
			extra = append(extra, key)
		}
	}

	if version != Version {
		e.fail(code.InvalidRequest, "invalid or missing jsonrpc version")
	}
	if hasMethodKey && e.Method == "" {
		e.fail(errEmptyMethod.Code, errEmptyMethod.Message)
	}
	if e.Method != "" && (e.Err != nil || e.Result != nil) {
		e.fail(code.InvalidRequest, "message mixes request and reply fields")
	}
	if e.parseErr == nil && len(extra) != 0 {
		e.parseErr = Errorf(code.InvalidRequest, "extra fields in message").WithData(extra)
	}
	return e, nil
}

// ParseError reports why e failed to parse into a valid message, or nil if
// e is well-formed.
func (e *Envelope) ParseError() *Error { return e.parseErr }

func (e *Envelope) fail(c code.Code, msg string) {
	if e.parseErr == nil {
		e.parseErr = &Error{Code: c, Message: msg}
	}
}

// EncodeEnvelope marshals e to its wire JSON form.
func EncodeEnvelope(e *Envelope) ([]byte, error) {
	var sb bytes.Buffer
	sb.WriteString(`{"jsonrpc":"2.0"`)
	if len(e.ID) != 0 {
		sb.WriteString(`,"id":`)
		sb.Write(e.ID)
	}
	switch {
	case e.Method != "":
		m, err := json.Marshal(e.Method)
		if err != nil {
			return nil, err
		}
		sb.WriteString(`,"method":`)
		sb.Write(m)
		if len(e.Params) != 0 {
			sb.WriteString(`,"params":`)
			sb.Write(e.Params)
		}
	case e.Err != nil:
		er, err := json.Marshal(e.Err)
		if err != nil {
			return nil, err
		}
		sb.WriteString(`,"error":`)
		sb.Write(er)
	default:
		sb.WriteString(`,"result":`)
		if len(e.Result) == 0 {
			sb.WriteString("null")
		} else {
			sb.Write(e.Result)
		}
	}
	sb.WriteByte('}')
	return sb.Bytes(), nil
}

// NewNotification builds an outbound notification envelope.
func NewNotification(method string, params json.RawMessage) *Envelope {
	return &Envelope{Method: method, Params: params}
}

// NewCall builds an outbound call envelope with the given wire ID.
func NewCall(id json.RawMessage, method string, params json.RawMessage) *Envelope {
	return &Envelope{ID: id, Method: method, Params: params}
}

// NewResultReply builds a successful reply envelope.
func NewResultReply(id json.RawMessage, result json.RawMessage) *Envelope {
	if result == nil {
		result = json.RawMessage("null")
	}
	return &Envelope{ID: id, Result: result}
}

// NewErrorReply builds a failed reply envelope.
func NewErrorReply(id json.RawMessage, err *Error) *Envelope {
	return &Envelope{ID: id, Err: err}
}

// isValidID reports whether v is a valid JSON encoding of a message ID.
func isValidID(v json.RawMessage) bool {
	if len(v) == 0 || isNullJSON(v) {
		return true
	}
	return v[0] == '"' || v[0] == '-' || (v[0] >= '0' && v[0] <= '9')
}

// fixID treats a literal JSON "null" ID as absent, as some LSP clients send
// "id":null for messages that are really notifications.
func fixID(id json.RawMessage) json.RawMessage {
	if isNullJSON(id) {
		return nil
	}
	return id
}

func isNullJSON(msg json.RawMessage) bool {
	return len(msg) == 4 && msg[0] == 'n' && msg[1] == 'u' && msg[2] == 'l' && msg[3] == 'l'
}

func firstNonSpace(data []byte) byte {
	clean := bytes.TrimSpace(data)
	if len(clean) == 0 {
		return 0
	}
	return clean[0]
}
