// Package stream provides the channel primitives the pipeline is built from:
// a hot multicast broadcaster and a trailing-edge debounce stage.
package stream

import (
	"context"
	"sync"
)

// DefaultBufferSize is the per-subscriber buffer used when none is given.
const DefaultBufferSize = 64

// Broadcaster delivers every published value to all current subscribers.
//
// Values are not replayed: a subscriber sees only what is published after it
// attached. Publish is synchronous and ordered across subscribers, so a
// subscriber whose buffer is full holds back every publisher until it reads,
// unsubscribes or the publish context ends.
type Broadcaster[T any] struct {
	mu         sync.Mutex
	subs       map[uint64]*Subscription[T]
	nextID     uint64
	bufferSize int
	closed     bool
	err        error
}

// NewBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewBroadcaster[T any](bufferSize int) *Broadcaster[T] {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Broadcaster[T]{
		subs:       make(map[uint64]*Subscription[T]),
		bufferSize: bufferSize,
	}
}

// Subscription is one subscriber's view of a broadcaster.
type Subscription[T any] struct {
	id     uint64
	b      *Broadcaster[T]
	events chan T
	done   chan struct{}
	once   sync.Once
	closed bool // guarded by b.mu
	err    error
}

// Subscribe attaches a new subscriber. Subscribing to a closed broadcaster
// returns a subscription whose channel is already closed.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Subscription[T]{
		id:     b.nextID,
		b:      b,
		events: make(chan T, b.bufferSize),
		done:   make(chan struct{}),
	}
	b.nextID++

	if b.closed {
		s.err = b.err
		s.closed = true
		close(s.events)
		return s
	}

	b.subs[s.id] = s
	return s
}

// Publish delivers v to every subscriber. It returns false if the
// broadcaster is closed or ctx ended before delivery completed.
func (b *Broadcaster[T]) Publish(ctx context.Context, v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || ctx.Err() != nil {
		return false
	}

	for _, s := range b.subs {
		if ctx.Err() != nil {
			return false
		}
		select {
		case s.events <- v:
		case <-s.done:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// Close ends the stream for all subscribers. err is reported by their Err
// method; nil means normal completion. Only the first Close has an effect.
func (b *Broadcaster[T]) Close(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	b.err = err

	for id, s := range b.subs {
		s.err = err
		s.closed = true
		close(s.events)
		delete(b.subs, id)
	}
}

// Closed reports whether Close has been called.
func (b *Broadcaster[T]) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Err returns the error the broadcaster was closed with.
func (b *Broadcaster[T]) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Len returns the number of attached subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Events returns the channel values are delivered on. It is closed when the
// broadcaster closes or the subscription is cancelled.
func (s *Subscription[T]) Events() <-chan T {
	return s.events
}

// Err returns the terminal error of the stream. It is meaningful only after
// Events has been closed.
func (s *Subscription[T]) Err() error {
	return s.err
}

// Close detaches the subscriber and closes its channel. Buffered values that
// were not read are dropped by the caller.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		close(s.done)

		s.b.mu.Lock()
		defer s.b.mu.Unlock()
		if s.closed {
			return
		}
		s.closed = true
		delete(s.b.subs, s.id)
		close(s.events)
	})
}
