package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entwined/remote/internal/cachemanager"
	"github.com/entwined/remote/internal/clock"
	"github.com/entwined/remote/internal/config"
	"github.com/entwined/remote/internal/log"
	"github.com/entwined/remote/internal/model"
	"github.com/entwined/remote/internal/pubsub"
	"github.com/entwined/remote/internal/session"
	"github.com/entwined/remote/internal/tracing"
	"github.com/entwined/remote/internal/transport"
)

var (
	errModelClosed    = errors.New("model closed")
	errConnectionLost = errors.New("connection lost")
)

// rig is one session against the lighting server.
type rig struct {
	model    *model.Model
	ctrl     *session.Controller
	provider *tracing.Provider
}

func openRig(cfg config.Config) (*rig, error) {
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("starting tracing: %w", err)
	}

	m := model.New(clock.Real())
	ctrl := session.New(m, transport.NewTCP(cfg.Server.DialTimeout), cfg.SessionOptions(),
		session.WithTracer(provider.Tracer()),
		session.WithCatalogStore(cachemanager.NewMemoryCatalogStore(cfg.Session.CatalogTTL)),
	)
	return &rig{model: m, ctrl: ctrl, provider: provider}, nil
}

// Close disconnects and flushes pending spans.
func (r *rig) Close() {
	r.ctrl.Close()
	r.model.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.provider.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatTrace, "Failed to flush traces", err)
	}
}

// connect starts the session and waits for the first full sync.
func (r *rig) connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := r.model.Subscribe(ctx)
	r.ctrl.Connect()
	if r.model.Loaded() {
		return nil
	}
	err := waitFor(ctx, events, func(model.Change) bool { return r.model.Loaded() })
	if err != nil {
		return fmt.Errorf("connecting to %s:%d: %w", r.ctrl.Hostname(), r.ctrl.Port(), err)
	}
	return nil
}

// settle requests the full model and waits until it has been applied. The
// server answers in order, so everything sent before has been received.
// Losing the connection first means those writes are unconfirmed.
func (r *rig) settle(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := r.model.Subscribe(ctx)
	if state := r.model.Snapshot().Connection; state != model.Connected {
		return fmt.Errorf("waiting for %s: %w (%s)", r.ctrl.Hostname(), errConnectionLost, state)
	}
	r.ctrl.LoadModel()

	var lost bool
	err := waitFor(ctx, events, func(c model.Change) bool {
		switch {
		case c.Field == model.FieldConnection:
			state, _ := c.Value.(model.Connection)
			lost = state != model.Connected
			return lost
		case c.Field == model.FieldLoaded && c.Origin == model.OriginSync:
			loaded, _ := c.Bool()
			return loaded
		}
		return false
	})
	if err == nil && lost {
		err = errConnectionLost
	}
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", r.ctrl.Hostname(), err)
	}
	return nil
}

func waitFor(ctx context.Context, events <-chan pubsub.Event[model.Change], done func(model.Change) bool) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errModelClosed
			}
			if done(ev.Payload) {
				return nil
			}
		}
	}
}
