// Package chanutil exports helper functions for working with channels and
// framings defined by the github.com/golangls/lsprpc/channel package.
package chanutil

import (
	"io"

	"github.com/golangls/lsprpc/channel"
)

// Framing returns a channel.Framing described by the specified name, or nil if
// the name is unknown. The framing types currently understood are:
//
//	decimal -- corresponds to channel.Decimal
//	json    -- corresponds to channel.JSON
//	line    -- corresponds to channel.Line
//	lsp     -- corresponds to channel.LSP (Content-Length framing)
//	raw     -- corresponds to channel.NewRaw
//	varint  -- corresponds to channel.Varint
func Framing(name string) channel.Framing { return framings[name] }

var framings = map[string]channel.Framing{
	"decimal": channel.Decimal,
	"json":    channel.JSON,
	"line":    channel.Line,
	"lsp":     channel.LSP,
	"raw":     rawFraming,
	"varint":  channel.Varint,
}

// rawFraming adapts channel.NewRaw, which wants a single io.ReadWriteCloser,
// to the channel.Framing shape used by the other framings.
func rawFraming(r io.Reader, wc io.WriteCloser) channel.Channel {
	return channel.NewRaw(readWriteCloser{r, wc})
}

type readWriteCloser struct {
	io.Reader
	io.WriteCloser
}
