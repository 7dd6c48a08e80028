package eventbus

import "sync"

// streamBufferSize is each stream subscriber's buffer capacity. When a
// subscriber falls this far behind, its oldest buffered events are dropped.
const streamBufferSize = 100

// Stream is a named transient broadcast: an emitted value is delivered to
// every subscriber attached at emit time and to nobody else — there is no
// replay. Each subscriber gets an independent buffer; a slow subscriber
// loses its oldest buffered events rather than slowing the emitter or its
// peers.
type Stream[T any] struct {
	name string

	mu     sync.RWMutex
	subs   map[int]*streamSub[T]
	nextID int
}

type streamSub[T any] struct {
	mu   sync.Mutex
	ch   chan T
	done chan struct{}
	once sync.Once
}

// NewStream creates an empty stream.
func NewStream[T any](name string) *Stream[T] {
	return &Stream[T]{
		name: name,
		subs: make(map[int]*streamSub[T]),
	}
}

// Name returns the stream's name.
func (s *Stream[T]) Name() string {
	return s.name
}

// Emit delivers v to every current subscriber. It never blocks: a full
// subscriber buffer sheds its oldest event to make room.
func (s *Stream[T]) Emit(v T) {
	s.mu.RLock()
	subs := make([]*streamSub[T], 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.RUnlock()

	for _, sub := range subs {
		sub.push(v)
	}
}

// push enqueues v for one subscriber, dropping from the front on a full
// buffer. The per-subscriber mutex serializes pushes so the drop-retry loop
// has a single producer.
func (sub *streamSub[T]) push(v T) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	select {
	case <-sub.done:
		return
	default:
	}

	for {
		select {
		case sub.ch <- v:
			return
		default:
		}
		// Buffer full: shed the oldest event. The receive can lose the race
		// with the consumer draining; either way room appears and the loop
		// sends on the next pass.
		select {
		case <-sub.ch:
		default:
		}
	}
}

// Subscribe attaches a new subscriber receiving only events emitted after
// the call returns. stop detaches the subscriber and closes the channel; it
// is idempotent and must be called when the subscriber is done.
func (s *Stream[T]) Subscribe() (<-chan T, func()) {
	sub := &streamSub[T]{
		ch:   make(chan T, streamBufferSize),
		done: make(chan struct{}),
	}

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	stop := func() {
		sub.once.Do(func() {
			close(sub.done)
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()

			// An in-flight push still holds sub.mu; taking it here orders
			// the close after that push has either sent or seen done.
			sub.mu.Lock()
			close(sub.ch)
			sub.mu.Unlock()
		})
	}
	return sub.ch, stop
}
