// Package transport carries protocol messages to and from the lighting
// server. A Channel only connects, sends and reports; retry policy belongs
// to its owner.
package transport

import (
	"errors"
	"time"

	"github.com/entwined/remote/internal/protocol"
)

const (
	// DefaultPort is the server's listening port.
	DefaultPort = 5204
	// DefaultDialTimeout bounds a connection attempt.
	DefaultDialTimeout = 5 * time.Second
)

// ErrConnectionClosed is reported when the peer closes the connection
// cleanly.
var ErrConnectionClosed = errors.New("connection closed by server")

// Handler receives a Channel's events. Each event carries the attempt id
// returned by the Connect call that produced it, so the owner can ignore
// events from attempts it has since abandoned.
//
// Handlers are called from the Channel's goroutines and must not call
// back into the Channel while holding a lock the Channel could be waiting
// on. Channels never wait on their own goroutines, so a handler may take
// a lock that is also held around Connect, Disconnect and Send.
type Handler interface {
	Connected(attempt string)
	Disconnected(attempt string, err error)
	Received(attempt string, msg protocol.Message)
}

// Channel is a single message connection to the server.
type Channel interface {
	// SetHandler installs the event receiver. Call before Connect.
	SetHandler(h Handler)
	// Connect abandons any current attempt and starts a new one in the
	// background. It returns the new attempt's id.
	Connect(host string, port int) string
	// Disconnect tears down the current attempt. No further events are
	// delivered for it.
	Disconnect()
	// Send enqueues msg. It is dropped if no connection is established.
	Send(msg protocol.Message)
}
