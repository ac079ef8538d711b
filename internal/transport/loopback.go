package transport

import (
	"strconv"
	"sync"

	"github.com/entwined/remote/internal/protocol"
)

var _ Channel = (*Loopback)(nil)

// Loopback is an in-memory Channel. It records what is sent and lets the
// caller drive connection events by hand. Events are delivered on the
// calling goroutine.
type Loopback struct {
	mu        sync.Mutex
	handler   Handler
	attempt   string
	seq       int
	connected bool
	host      string
	port      int
	connects  int
	sent      []protocol.Message
}

// NewLoopback creates a disconnected Loopback.
func NewLoopback() *Loopback {
	return &Loopback{}
}

func (l *Loopback) SetHandler(h Handler) {
	l.mu.Lock()
	l.handler = h
	l.mu.Unlock()
}

func (l *Loopback) Connect(host string, port int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.attempt = "attempt-" + strconv.Itoa(l.seq)
	l.connected = false
	l.host, l.port = host, port
	l.connects++
	return l.attempt
}

func (l *Loopback) Disconnect() {
	l.mu.Lock()
	l.attempt = ""
	l.connected = false
	l.mu.Unlock()
}

func (l *Loopback) Send(msg protocol.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.connected {
		l.sent = append(l.sent, msg)
	}
}

// Attempt returns the current attempt id, empty when disconnected.
func (l *Loopback) Attempt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attempt
}

// Target returns the host and port of the last Connect.
func (l *Loopback) Target() (string, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.host, l.port
}

// Connects returns how many times Connect was called.
func (l *Loopback) Connects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connects
}

// Accept completes the current attempt.
func (l *Loopback) Accept() {
	l.mu.Lock()
	id, h := l.attempt, l.handler
	l.connected = id != ""
	l.mu.Unlock()
	if id != "" && h != nil {
		h.Connected(id)
	}
}

// Fail ends the current attempt with err.
func (l *Loopback) Fail(err error) {
	l.FailAttempt(l.Attempt(), err)
}

// FailAttempt reports err for a specific attempt, current or not.
func (l *Loopback) FailAttempt(attempt string, err error) {
	l.mu.Lock()
	if attempt == l.attempt {
		l.connected = false
	}
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h.Disconnected(attempt, err)
	}
}

// Deliver hands msg to the handler as if received on the current attempt.
func (l *Loopback) Deliver(msg protocol.Message) {
	l.DeliverAttempt(l.Attempt(), msg)
}

// DeliverAttempt hands msg to the handler as if received on attempt.
func (l *Loopback) DeliverAttempt(attempt string, msg protocol.Message) {
	l.mu.Lock()
	h := l.handler
	l.mu.Unlock()
	if h != nil {
		h.Received(attempt, msg)
	}
}

// Sent returns the messages sent while connected.
func (l *Loopback) Sent() []protocol.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]protocol.Message, len(l.sent))
	copy(out, l.sent)
	return out
}

// Methods returns the method names of Sent, in order.
func (l *Loopback) Methods() []string {
	sent := l.Sent()
	out := make([]string, len(sent))
	for i, m := range sent {
		out[i] = m.Method
	}
	return out
}

// Reset forgets recorded messages.
func (l *Loopback) Reset() {
	l.mu.Lock()
	l.sent = nil
	l.mu.Unlock()
}
