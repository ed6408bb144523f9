// Package pubsub provides a generic publish/subscribe event system.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// StatePublished carries a new view state.
	StatePublished EventType = "state.published"
	// StateReset is published when a store is cleared.
	StateReset EventType = "state.reset"
	// Navigated carries the outcome of one navigation.
	Navigated EventType = "navigation"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type    EventType
	Payload T
	// Seq increases by one for every Publish on the same broker, so
	// subscribers can tell when events were dropped.
	Seq       uint64
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T) uint64
}

// Receive waits for the next event on ch. ok is false when ctx ends or
// ch is closed.
func Receive[T any](ctx context.Context, ch <-chan Event[T]) (ev Event[T], ok bool) {
	select {
	case <-ctx.Done():
		return ev, false
	case ev, ok = <-ch:
		return ev, ok
	}
}
