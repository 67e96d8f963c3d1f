// Package lsprpctest provides an in-memory client/server pair for testing
// code built on lsprpc, without a real subprocess or socket.
package lsprpctest

import (
	"github.com/golangls/lsprpc"
	"github.com/golangls/lsprpc/channel"
)

// Local is a connected pair of Endpoints, wired together over an in-memory
// channel.Pipe and each running its own Serve loop in the background.
type Local struct {
	// Client is the Endpoint that plays the editor's role: its Call and
	// Notify methods send requests to Server.
	Client *lsprpc.Endpoint

	// Server is the Endpoint that plays the language server's role,
	// dispatching inbound calls and notifications to serverAssigner.
	Server *lsprpc.Endpoint

	cdone, sdone chan error
}

// NewLocal constructs a connected Client/Server pair. serverAssigner
// handles the calls and notifications Client.Call/Client.Notify send.
// clientAssigner, which may be nil, handles the server-originated calls a
// language server sends back to the editor (window/showMessageRequest,
// workspace/applyEdit, and the like); a nil clientAssigner answers every
// such push with MethodNotFound.
func NewLocal(serverAssigner, clientAssigner lsprpc.Assigner, opts *lsprpc.Options) *Local {
	if clientAssigner == nil {
		clientAssigner = lsprpc.MapAssigner{}
	}
	cch, sch := channel.Pipe(channel.LSP)

	l := &Local{
		Client: lsprpc.NewEndpoint(clientAssigner, opts),
		Server: lsprpc.NewEndpoint(serverAssigner, opts),
		cdone:  make(chan error, 1),
		sdone:  make(chan error, 1),
	}
	// The editor side of the handshake never receives its own "initialize"
	// call, so its init gate (spec.md §4.3) is opened up front; only the
	// Server is gated until Client calls "initialize" on it.
	l.Client.MarkInitialized()
	go func() { l.cdone <- l.Client.Serve(cch) }()
	go func() { l.sdone <- l.Server.Serve(sch) }()
	return l
}

// Close stops both endpoints and waits for their Serve loops to return,
// propagating whichever side reported a non-nil error (preferring the
// client's, for determinism in tests that only care that shutdown was
// clean).
func (l *Local) Close() error {
	l.Client.Stop()
	l.Server.Stop()
	cerr := <-l.cdone
	serr := <-l.sdone
	if cerr != nil {
		return cerr
	}
	return serr
}
