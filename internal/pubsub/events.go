// Package pubsub provides a generic publish/subscribe event system. The
// model uses it to announce committed changes; the logger uses it to feed
// the control panel's log overlay.
package pubsub

import (
	"context"
	"time"
)

// EventType says where a published payload came from.
type EventType string

const (
	// ChangedEvent carries an interactive model edit.
	ChangedEvent EventType = "changed"
	// SyncedEvent carries a model change mirrored from the server.
	SyncedEvent EventType = "synced"
	// LoggedEvent carries a formatted log entry.
	LoggedEvent EventType = "logged"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
