// Package viewmodel holds the current state of each top-level view and
// notifies observers whenever it is replaced.
package viewmodel

import (
	"context"
	"sync"

	"github.com/zjrosen/gerritnav/internal/log"
	"github.com/zjrosen/gerritnav/internal/pubsub"
)

// Cloner is implemented by view states. Clone returns a copy that shares no
// mutable memory with the receiver.
type Cloner[S any] interface {
	Clone() S
}

type observer[S any] struct {
	fn      func(S)
	removed bool
}

// Store holds the current state of one view. Every SetState is a full
// replacement and a discrete emission: observers see each published state
// in call order, including consecutive states that are equal.
//
// SetState called from inside an observer is queued and delivered once the
// emission in progress has reached every observer.
type Store[S Cloner[S]] struct {
	name string

	mu        sync.Mutex
	current   S
	set       bool
	observers []*observer[S]
	queue     []S
	emitting  bool

	broker *pubsub.Broker[S]
}

// NewStore creates an empty store. name shows up in log lines.
func NewStore[S Cloner[S]](name string) *Store[S] {
	return &Store[S]{
		name:   name,
		broker: pubsub.NewBroker[S](pubsub.WithDelivery(pubsub.BlockUntilReceived)),
	}
}

// State returns a copy of the current state. ok is false before the first
// SetState and after Reset.
func (s *Store[S]) State() (state S, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return state, false
	}
	return s.current.Clone(), true
}

// SetState replaces the current state and notifies observers.
func (s *Store[S]) SetState(state S) {
	state = state.Clone()

	s.mu.Lock()
	s.current = state
	s.set = true
	s.queue = append(s.queue, state)
	if s.emitting {
		s.mu.Unlock()
		return
	}
	s.emitting = true
	s.mu.Unlock()

	s.drain()
}

// drain delivers queued states until the queue is empty. Only the caller
// that flipped emitting runs it.
func (s *Store[S]) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.emitting = false
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		observers := append([]*observer[S](nil), s.observers...)
		s.mu.Unlock()

		for _, o := range observers {
			if s.live(o) {
				o.fn(next.Clone())
			}
		}
		seq := s.broker.Publish(pubsub.StatePublished, next.Clone())
		log.Debug(log.CatStore, "state published", "store", s.name, "seq", seq, "observers", len(observers))
	}
}

func (s *Store[S]) live(o *observer[S]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !o.removed
}

// UpdateState builds the next state from a copy of the current one (or the
// zero value when empty) and publishes it with SetState. The current value
// is never modified in place.
func (s *Store[S]) UpdateState(update func(*S)) {
	next, _ := s.State()
	update(&next)
	s.SetState(next)
}

// Subscribe registers fn for every future state. When the store already
// holds a state, fn is called with it before Subscribe returns, unless that
// state is still queued, in which case the queued emission delivers it. The
// returned function removes the observer; it is safe to call more than once.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	o := &observer[S]{fn: fn}

	s.mu.Lock()
	s.observers = append(s.observers, o)
	current := s.current
	replay := s.set && len(s.queue) == 0
	s.mu.Unlock()

	if replay {
		fn(current.Clone())
	}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if o.removed {
			return
		}
		o.removed = true
		for i, other := range s.observers {
			if other == o {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				break
			}
		}
	}
}

// Watch returns a channel of store events for goroutine consumers. The
// channel does not replay the current state. Publication waits for the
// watcher to take each event, so a watcher must keep reading until ctx ends.
func (s *Store[S]) Watch(ctx context.Context) <-chan pubsub.Event[S] {
	return s.broker.Subscribe(ctx)
}

// Reset clears the current state. Observers are not called; watchers get a
// StateReset event.
func (s *Store[S]) Reset() {
	var zero S

	s.mu.Lock()
	s.current = zero
	s.set = false
	s.mu.Unlock()

	s.broker.Publish(pubsub.StateReset, zero)
	log.Debug(log.CatStore, "state reset", "store", s.name)
}

// Close closes all watch channels. The store stays usable for observers.
func (s *Store[S]) Close() {
	s.broker.Close()
}
