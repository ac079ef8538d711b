package session

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/entwined/remote/internal/cachemanager"
	"github.com/entwined/remote/internal/clock"
	"github.com/entwined/remote/internal/transport"
)

const (
	// DefaultHostname is the rig server's address on the installation
	// network.
	DefaultHostname          = "10.0.0.3"
	DefaultReconnectInterval = time.Second
	DefaultTimerRefreshDelay = 250 * time.Millisecond
	// DefaultBreak is the length of a break started from the panel.
	DefaultBreak = 5 * time.Minute
)

var (
	// ErrEmptyHostname is returned by SetHostname for a blank hostname.
	ErrEmptyHostname = errors.New("hostname must not be empty")
	// ErrInvalidBreak is returned by StartBreak for a non-positive length.
	ErrInvalidBreak = errors.New("break length must be positive")
)

// Options are the controller's tunables.
type Options struct {
	Hostname string
	Port     int

	// ReconnectInterval is the fixed delay between reconnect attempts.
	ReconnectInterval time.Duration
	// TimerRefreshDelay is how long after a timer reset the timer is
	// fetched again.
	TimerRefreshDelay time.Duration
}

// DefaultOptions returns the standard server address and timings.
func DefaultOptions() Options {
	return Options{
		Hostname:          DefaultHostname,
		Port:              transport.DefaultPort,
		ReconnectInterval: DefaultReconnectInterval,
		TimerRefreshDelay: DefaultTimerRefreshDelay,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Hostname == "" {
		o.Hostname = d.Hostname
	}
	if o.Port <= 0 {
		o.Port = d.Port
	}
	if o.ReconnectInterval <= 0 {
		o.ReconnectInterval = d.ReconnectInterval
	}
	if o.TimerRefreshDelay <= 0 {
		o.TimerRefreshDelay = d.TimerRefreshDelay
	}
	return o
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the real clock.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithTracer records session spans on t.
func WithTracer(t trace.Tracer) Option {
	return func(ctrl *Controller) { ctrl.tracer = t }
}

// WithCatalogStore shares a catalog cache across controllers.
func WithCatalogStore(s *cachemanager.CatalogStore) Option {
	return func(ctrl *Controller) { ctrl.catalogs = s }
}
