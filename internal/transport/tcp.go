package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/protocol"
)

// Compile-time interface check.
var _ Channel = (*TCP)(nil)

const sendQueueSize = 64

// TCP is a Channel over a plain TCP stream. Messages are JSON values; each
// outbound value is followed by a newline, and inbound values may be
// separated by any whitespace.
type TCP struct {
	// DialTimeout bounds each connection attempt. Zero means no limit.
	DialTimeout time.Duration

	mu      sync.Mutex
	handler Handler
	current *tcpConn
}

// NewTCP creates a TCP channel.
func NewTCP(dialTimeout time.Duration) *TCP {
	return &TCP{DialTimeout: dialTimeout}
}

// SetHandler installs the event receiver.
func (t *TCP) SetHandler(h Handler) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

// Connect abandons the current attempt and dials host:port in the
// background.
func (t *TCP) Connect(host string, port int) string {
	t.mu.Lock()
	prev := t.current
	c := newTCPConn(uuid.NewString(), t.handler)
	t.current = c
	t.mu.Unlock()

	if prev != nil {
		prev.abandon()
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	log.Debug(log.CatTransport, "dialing", "addr", addr, "attempt", c.id)
	go c.run(addr, t.DialTimeout)
	return c.id
}

// Disconnect abandons the current attempt without waiting for its
// goroutines.
func (t *TCP) Disconnect() {
	t.mu.Lock()
	c := t.current
	t.current = nil
	t.mu.Unlock()

	if c != nil {
		log.Debug(log.CatTransport, "disconnecting", "attempt", c.id)
		c.abandon()
	}
}

// Send enqueues msg on the current connection. It is dropped when there
// is no established connection or the queue is full.
func (t *TCP) Send(msg protocol.Message) {
	t.mu.Lock()
	c := t.current
	t.mu.Unlock()

	if c == nil || !c.isConnected() {
		log.Debug(log.CatTransport, "dropping message, not connected", "method", msg.Method)
		return
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		log.ErrorErr(log.CatTransport, "encode message", err, "method", msg.Method)
		return
	}
	select {
	case c.out <- data:
	default:
		log.Warn(log.CatTransport, "send queue full, dropping message", "method", msg.Method)
	}
}

type tcpConn struct {
	id      string
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
	out     chan []byte

	mu        sync.Mutex
	nc        net.Conn
	connected bool
	abandoned bool
	done      bool
}

func newTCPConn(id string, h Handler) *tcpConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &tcpConn{
		id:      id,
		handler: h,
		ctx:     ctx,
		cancel:  cancel,
		out:     make(chan []byte, sendQueueSize),
	}
}

func (c *tcpConn) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.done
}

// abandon closes the connection and suppresses all further events.
func (c *tcpConn) abandon() {
	c.mu.Lock()
	c.abandoned = true
	c.mu.Unlock()
	c.shutdown()
}

// shutdown closes the connection once and reports whether this call did it.
func (c *tcpConn) shutdown() bool {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return false
	}
	c.done = true
	nc := c.nc
	c.mu.Unlock()

	c.cancel()
	if nc != nil {
		_ = nc.Close()
	}
	return true
}

// fail tears the connection down and reports err unless it was abandoned.
func (c *tcpConn) fail(err error) {
	if !c.shutdown() {
		return
	}
	c.mu.Lock()
	abandoned := c.abandoned
	c.mu.Unlock()
	if abandoned || c.handler == nil {
		return
	}
	if IsExpectedCloseError(err) {
		log.Info(log.CatTransport, "connection closed", "attempt", c.id, "reason", err)
	} else {
		log.ErrorErr(log.CatTransport, "connection lost", err, "attempt", c.id)
	}
	c.handler.Disconnected(c.id, err)
}

func (c *tcpConn) run(addr string, timeout time.Duration) {
	nc, err := (&net.Dialer{Timeout: timeout}).DialContext(c.ctx, "tcp", addr)
	if err != nil {
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		_ = nc.Close()
		return
	}
	c.nc = nc
	c.connected = true
	c.mu.Unlock()

	log.Info(log.CatTransport, "connected", "addr", addr, "attempt", c.id)
	if c.handler != nil {
		c.handler.Connected(c.id)
	}

	go c.writeLoop(nc)
	c.readLoop(nc)
}

func (c *tcpConn) writeLoop(nc net.Conn) {
	w := bufio.NewWriter(nc)
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.out:
			if _, err := w.Write(append(data, '\n')); err != nil {
				c.fail(err)
				return
			}
			// Flush eagerly unless more messages are already queued.
			if len(c.out) == 0 {
				if err := w.Flush(); err != nil {
					c.fail(err)
					return
				}
			}
		}
	}
}

func (c *tcpConn) readLoop(nc net.Conn) {
	dec := json.NewDecoder(bufio.NewReader(nc))
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				err = ErrConnectionClosed
			}
			c.fail(err)
			return
		}
		msg, err := protocol.Parse(raw)
		if err != nil {
			log.Warn(log.CatProtocol, "skipping inbound value", "attempt", c.id, "error", err)
			continue
		}

		c.mu.Lock()
		live := !c.abandoned
		c.mu.Unlock()
		if !live {
			return
		}
		log.Debug(log.CatTransport, "received", "method", msg.Method, "attempt", c.id)
		if c.handler != nil {
			c.handler.Received(c.id, msg)
		}
	}
}
