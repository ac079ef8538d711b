// Package session keeps one connection to the lighting server alive and
// keeps the model in step with it.
//
// Inbound model and pauseTimer messages are applied inside Model.Sync, so
// they never echo back to the server. Every interactive change committed
// through Model.Edit is forwarded as the matching set command. The
// controller's mutex is the single context in which commands, transport
// events and timer callbacks run.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/entwined/remote/internal/cachemanager"
	"github.com/entwined/remote/internal/clock"
	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/protocol"
	"github.com/entwined/remote/internal/tracing"
	"github.com/entwined/remote/internal/transport"
)

// Controller is the session with the server. Create one per process with
// New and call Connect.
type Controller struct {
	model     *model.Model
	transport transport.Channel
	clock     clock.Clock
	tracer    trace.Tracer
	catalogs  *cachemanager.CatalogStore

	mu          sync.Mutex
	opts        Options
	state       model.Connection
	autoconnect bool
	attempt     string
	connectSpan trace.Span

	retry    taskSlot
	refresh  taskSlot
	breakEnd taskSlot

	// sendAttempt mirrors attempt for the propagation observer, which may
	// run without mu when a caller edits the model directly.
	sendAttempt atomic.Value

	stopObserving func()
}

// New creates a disconnected controller for m over t.
func New(m *model.Model, t transport.Channel, opts Options, options ...Option) *Controller {
	c := &Controller{
		model:     m,
		transport: t,
		clock:     clock.Real(),
		tracer:    noop.NewTracerProvider().Tracer("noop"),
		opts:      opts.withDefaults(),
		state:     model.Disconnected,
	}
	for _, o := range options {
		o(c)
	}
	if c.catalogs == nil {
		c.catalogs = cachemanager.NewMemoryCatalogStore(0)
	}
	c.sendAttempt.Store("")

	t.SetHandler(events{c})
	c.stopObserving = m.ObserveCommits(c.propagate)
	return c
}

// Model returns the model the controller keeps in sync.
func (c *Controller) Model() *model.Model {
	return c.model
}

// State returns the connection state.
func (c *Controller) State() model.Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Hostname returns the current target host.
func (c *Controller) Hostname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Hostname
}

// Port returns the server port.
func (c *Controller) Port() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.Port
}

// Connect starts connecting and keeps retrying until connected or
// Disconnect is called. It does nothing more than enable retries when
// already connected.
func (c *Controller) Connect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.autoconnect = true
	if c.state == model.Connected {
		return
	}
	c.connectLocked()
}

// Disconnect closes the connection and stops reconnecting.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnectLocked()
}

// SetHostname switches to a new server. The old session is torn down and
// a new one started even if the hostname is unchanged.
func (c *Controller) SetHostname(hostname string) error {
	hostname = strings.TrimSpace(hostname)
	if hostname == "" {
		log.Warn(log.CatSession, "rejecting empty hostname")
		return ErrEmptyHostname
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	log.Info(log.CatSession, "switching server", "from", c.opts.Hostname, "to", hostname)
	c.disconnectLocked()
	c.opts.Hostname = hostname
	c.autoconnect = true
	c.connectLocked()
	return nil
}

// LastKnownCatalog returns the patterns and effects last synced from
// hostname, if still cached.
func (c *Controller) LastKnownCatalog(hostname string) (cachemanager.Catalog, bool) {
	return c.catalogs.Lookup(context.Background(), hostname)
}

// Close disconnects and detaches from the model and transport events.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.disconnectLocked()
	c.breakEnd.cancel()
	if c.stopObserving != nil {
		c.stopObserving()
		c.stopObserving = nil
	}
}

func (c *Controller) connectLocked() {
	c.endConnectSpan(context.Canceled)

	attempt := c.transport.Connect(c.opts.Hostname, c.opts.Port)
	c.attempt = attempt
	c.sendAttempt.Store(attempt)
	c.connectSpan = tracing.StartConnect(c.tracer, c.opts.Hostname, c.opts.Port, attempt)
	c.setState(model.Connecting)

	log.Info(log.CatSession, "connecting", "host", c.opts.Hostname, "port", c.opts.Port, "attempt", attempt)
}

func (c *Controller) disconnectLocked() {
	c.autoconnect = false
	c.retry.cancel()
	c.refresh.cancel()
	c.transport.Disconnect()

	c.endConnectSpan(context.Canceled)
	c.attempt = ""
	c.sendAttempt.Store("")
	if c.state != model.Disconnected {
		log.Info(log.CatSession, "disconnected", "host", c.opts.Hostname)
	}
	c.setState(model.Disconnected)
}

func (c *Controller) setState(s model.Connection) {
	c.state = s
	c.model.Sync(func(w *model.Writer) {
		w.SetConnection(s)
		if s != model.Connected && w.State().Loaded {
			w.SetLoaded(false)
		}
	})
}

func (c *Controller) endConnectSpan(err error) {
	if c.connectSpan == nil {
		return
	}
	tracing.EndConnect(c.connectSpan, err)
	c.connectSpan = nil
}

func (c *Controller) retryTick() {
	log.Debug(log.CatSession, "retrying connection", "host", c.opts.Hostname)
	c.connectLocked()
}

// events adapts the controller to transport.Handler without exporting the
// callbacks.
type events struct{ c *Controller }

func (e events) Connected(attempt string) {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if attempt != c.attempt {
		log.Debug(log.CatSession, "ignoring stale connect", "attempt", attempt)
		return
	}
	c.retry.cancel()
	c.endConnectSpan(nil)
	c.setState(model.Connected)
	log.Info(log.CatSession, "connected", "host", c.opts.Hostname, "attempt", attempt)

	c.send(protocol.LoadModel())
}

func (e events) Disconnected(attempt string, err error) {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if attempt != c.attempt {
		log.Debug(log.CatSession, "ignoring stale disconnect", "attempt", attempt)
		return
	}
	if c.connectSpan != nil && c.autoconnect {
		c.connectSpan.AddEvent(tracing.EventRetryArmed)
	}
	c.endConnectSpan(err)
	c.setState(model.Disconnected)

	// autoconnect is read now, not when the attempt started, so a
	// Disconnect in the meantime wins.
	if c.autoconnect && !c.retry.pending() {
		log.Info(log.CatSession, "connection lost, retrying", "error", err, "every", c.opts.ReconnectInterval)
		c.every(&c.retry, c.opts.ReconnectInterval, c.retryTick)
	}
}

func (e events) Received(attempt string, msg protocol.Message) {
	c := e.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if attempt != c.attempt {
		log.Debug(log.CatSession, "ignoring message from stale attempt", "method", msg.Method)
		return
	}
	c.receive(attempt, msg)
}
