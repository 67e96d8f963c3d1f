package channel

import (
	"encoding/json"
	"io"
)

// NewRaw constructs a Channel that transmits and receives messages on
// rwc with no explicit framing.
func NewRaw(rwc io.ReadWriteCloser) Channel { return Raw{rwc: rwc, dec: json.NewDecoder(rwc)} }

// Raw implements Channel. Messages sent on a Raw channel are not
// explicitly framed, and messages received are framed by JSON syntax.
type Raw struct {
	rwc io.ReadWriteCloser
	dec *json.Decoder
}

// Send implements part of Channel.
func (r Raw) Send(msg []byte) error { _, err := r.rwc.Write(msg); return err }

// Recv implements part of Channel.
func (r Raw) Recv() ([]byte, error) {
	var msg json.RawMessage
	err := r.dec.Decode(&msg)
	return msg, err
}

// Close implements part of Channel.
func (r Raw) Close() error { return r.rwc.Close() }
