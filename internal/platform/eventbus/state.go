// Package eventbus provides in-process broadcast primitives: State cells
// that hold a current value and replay it to new subscribers, and Streams
// that fan transient events out to whoever is attached at emit time.
//
// Both are generic and carry no domain knowledge; the application layer
// decides what flows through them. Cells and streams are constructed
// explicitly and passed by reference; there is no package-level instance.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// stateBufferSize is each state subscriber's pending-update capacity.
const stateBufferSize = 16

// State is a named cell holding the single current value of a
// monotonically-updated stream. Reads never block writers: the current
// value is replaced atomically. Updates are serialized, and every live
// subscriber sees every update in order — a subscriber attached at update
// N receives N's value (or the seed) and then N+1, N+2, ... without skips.
type State[T any] struct {
	name    string
	current atomic.Pointer[T]

	mu     sync.Mutex
	subs   map[int]*stateSub[T]
	nextID int
}

type stateSub[T any] struct {
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewState creates a cell seeded with initial.
func NewState[T any](name string, initial T) *State[T] {
	s := &State[T]{
		name: name,
		subs: make(map[int]*stateSub[T]),
	}
	s.current.Store(&initial)
	return s
}

// Name returns the cell's name.
func (s *State[T]) Name() string {
	return s.name
}

// Current returns the cell's current value without blocking, regardless of
// concurrent updates.
func (s *State[T]) Current() T {
	return *s.current.Load()
}

// Update replaces the current value and delivers it to every subscriber.
// Delivery to a subscriber blocks only while that subscriber's buffer is
// full; a subscriber that stops consuming must call its stop function or
// it will eventually stall publishers.
func (s *State[T]) Update(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current.Store(&v)
	for _, sub := range s.subs {
		select {
		case sub.ch <- v:
		case <-sub.done:
		}
	}
}

// Subscribe attaches a new subscriber. The returned channel first yields
// the value current at attach time, then every subsequent update in order.
// stop detaches the subscriber and closes the channel; it is idempotent and
// must be called when the subscriber is done.
func (s *State[T]) Subscribe() (<-chan T, func()) {
	sub := &stateSub[T]{
		ch:   make(chan T, stateBufferSize),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	sub.ch <- *s.current.Load()
	s.subs[id] = sub
	s.mu.Unlock()

	stop := func() {
		sub.once.Do(func() {
			close(sub.done)
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, stop
}
