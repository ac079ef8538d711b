package pubsub

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 64

// Broker is a generic pub/sub event broker. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Broker[T any] struct {
	mu         sync.RWMutex
	subs       map[chan Event[T]]struct{}
	done       chan struct{}
	bufferSize int

	replay bool
	last   *Event[T]
	now    func() time.Time
}

// Option configures a Broker.
type Option func(*brokerOptions)

type brokerOptions struct {
	bufferSize int
	replay     bool
	now        func() time.Time
}

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(size int) Option {
	return func(o *brokerOptions) { o.bufferSize = size }
}

// WithReplay makes new subscribers receive the most recent event first.
func WithReplay() Option {
	return func(o *brokerOptions) { o.replay = true }
}

// WithTimeSource overrides the timestamp source for events.
func WithTimeSource(now func() time.Time) Option {
	return func(o *brokerOptions) { o.now = now }
}

// NewBroker creates a broker. Without options each subscriber gets a
// buffer of 64 events and no replay.
func NewBroker[T any](opts ...Option) *Broker[T] {
	o := brokerOptions{bufferSize: defaultBufferSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bufferSize < 1 {
		o.bufferSize = 1
	}
	return &Broker[T]{
		subs:       make(map[chan Event[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: o.bufferSize,
		replay:     o.replay,
		now:        o.now,
	}
}

// Subscribe creates a new subscription channel.
// The channel is closed when ctx is cancelled or the broker is closed.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		ch := make(chan Event[T])
		close(ch)
		return ch
	}

	sub := make(chan Event[T], b.bufferSize)
	if b.replay && b.last != nil {
		sub <- *b.last
	}
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub)
		}
	}()

	return sub
}

// Publish sends an event to all subscribers.
func (b *Broker[T]) Publish(eventType EventType, payload T) {
	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Timestamp: b.now(),
	}

	if b.replay {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.last = &event
	} else {
		b.mu.RLock()
		defer b.mu.RUnlock()
	}

	if b.closed() {
		return
	}
	for sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Close shuts down the broker and all subscriber channels.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed() {
		return
	}
	close(b.done)
	for sub := range b.subs {
		close(sub)
	}
	b.subs = map[chan Event[T]]struct{}{}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// closed reports whether Close has run. Callers hold b.mu.
func (b *Broker[T]) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
