package pubsub

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const defaultBufferSize = 64

// Delivery selects what Publish does when a subscriber's buffer is full.
type Delivery int

const (
	// DropWhenFull skips subscribers whose buffer is full. Publish never blocks.
	DropWhenFull Delivery = iota
	// BlockUntilReceived waits until each subscriber takes the event, its
	// context ends, or the broker closes. No event is lost to a live
	// subscriber.
	BlockUntilReceived
)

type subscription[T any] struct {
	ch  chan Event[T]
	ctx context.Context
}

// Broker is a generic pub/sub event broker.
// It allows multiple subscribers to receive events published by publishers.
type Broker[T any] struct {
	subs       map[*subscription[T]]struct{}
	mu         sync.RWMutex
	done       chan struct{}
	closeOnce  sync.Once
	bufferSize int
	delivery   Delivery
	seq        atomic.Uint64
}

// Option configures a Broker.
type Option func(*brokerConfig)

type brokerConfig struct {
	bufferSize int
	delivery   Delivery
}

// WithBuffer sets the per-subscriber channel capacity.
func WithBuffer(size int) Option {
	return func(c *brokerConfig) { c.bufferSize = size }
}

// WithDelivery sets the delivery mode.
func WithDelivery(d Delivery) Option {
	return func(c *brokerConfig) { c.delivery = d }
}

// NewBroker creates a new broker. By default subscribers get a buffer of
// 64 events and events are dropped for subscribers that fall behind.
func NewBroker[T any](opts ...Option) *Broker[T] {
	cfg := brokerConfig{bufferSize: defaultBufferSize, delivery: DropWhenFull}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bufferSize < 0 {
		cfg.bufferSize = 0
	}
	return &Broker[T]{
		subs:       make(map[*subscription[T]]struct{}),
		done:       make(chan struct{}),
		bufferSize: cfg.bufferSize,
		delivery:   cfg.delivery,
	}
}

// Subscribe creates a new subscription channel.
// The channel is automatically closed when ctx is cancelled.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan Event[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	select {
	case <-b.done:
		ch := make(chan Event[T])
		close(ch)
		return ch
	default:
	}

	sub := &subscription[T]{ch: make(chan Event[T], b.bufferSize), ctx: ctx}
	b.subs[sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
		case <-b.done:
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()

		select {
		case <-b.done:
			return // Close already closed the channel
		default:
		}

		delete(b.subs, sub)
		close(sub.ch)
	}()

	return sub.ch
}

// Publish sends an event to all subscribers and returns its sequence
// number. In BlockUntilReceived mode it returns only after every live
// subscriber has taken the event.
func (b *Broker[T]) Publish(eventType EventType, payload T) uint64 {
	event := Event[T]{
		Type:      eventType,
		Payload:   payload,
		Seq:       b.seq.Add(1),
		Timestamp: time.Now(),
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.done:
		return event.Seq
	default:
	}

	for sub := range b.subs {
		if b.delivery == BlockUntilReceived {
			select {
			case sub.ch <- event:
			case <-sub.ctx.Done():
			case <-b.done:
				return event.Seq
			}
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Channel full - drop to prevent blocking
		}
	}
	return event.Seq
}

// Close shuts down the broker and all subscriber channels. A Publish
// blocked on a slow subscriber is released first.
func (b *Broker[T]) Close() {
	b.closeOnce.Do(func() { close(b.done) })

	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
