// Package eventbus implements a small in-process publish/subscribe bus used
// to observe dispatch activity. It is not part of the assignment correctness
// path.
package eventbus

import "sync"

// Event represents an arbitrary event passed on the bus.
type Event any

// Sub is a subscriber handle. The owner reads from C and must Close the
// handle when done.
type Sub struct {
	ch   chan Event
	bus  *Bus
	once sync.Once
}

// C returns the subscriber's channel.
func (s *Sub) C() <-chan Event { return s.ch }

// Close removes the subscriber from the bus and closes its channel. Safe to
// call more than once.
func (s *Sub) Close() {
	s.once.Do(func() { s.bus.drop(s) })
}

// Bus fans events out to all subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Sub]struct{}
	closed bool
}

// New creates a new Bus.
func New() *Bus { return &Bus{subs: make(map[*Sub]struct{})} }

// Publish sends the event to all subscribers. Delivery is non-blocking; slow
// subscribers miss events rather than stalling the publisher.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber.
func (b *Bus) Subscribe() *Sub {
	s := &Sub{ch: make(chan Event, 16), bus: b}
	b.mu.Lock()
	if b.closed {
		close(s.ch)
	} else {
		b.subs[s] = struct{}{}
	}
	b.mu.Unlock()
	return s
}

// Close closes all subscriber channels and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

func (b *Bus) drop(s *Sub) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if _, ok := b.subs[s]; ok {
		delete(b.subs, s)
		close(s.ch)
	}
}
