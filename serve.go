package lsprpc

import (
	"net"
	"sync"

	"github.com/golangls/lsprpc/channel"
)

// ServeLoop accepts connections from lst and runs a fresh Endpoint over
// each one concurrently, framing each connection's bytes with the LSP
// base-protocol framing (channel.LSP) and dispatching inbound calls and
// notifications to assigner. It runs until lst.Accept returns an error
// (typically because lst was closed), at which point it waits for every
// spawned Endpoint's Serve loop to finish before returning that error.
//
// This plays the role jrpc2's accept loop played for the teacher library's
// one-connection-per-client model; an LSP server normally only ever serves
// a single connection over stdio, so ServeLoop exists for the socket-based
// embedders SPEC_FULL.md's transport section calls out.
func ServeLoop(lst net.Listener, assigner Assigner, opts *Options) error {
	var wg sync.WaitGroup
	for {
		conn, err := lst.Accept()
		if err != nil {
			wg.Wait()
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			ep := NewEndpoint(assigner, opts)
			ep.Serve(channel.LSP(conn, conn))
		}()
	}
}
