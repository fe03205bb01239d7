// Package broadcast fans identity provider auth events out to subscribers in
// the order the underlying state changed.
package broadcast

import (
	"sync"

	goSession "github.com/MrEthical07/goSession"
)

// Bus is a set of auth event handlers. Handlers run on the emitting goroutine
// and must not emit on the same Bus.
type Bus struct {
	// order serializes a state change with the delivery of its event.
	order sync.Mutex

	mu       sync.Mutex
	handlers map[uint64]func(goSession.AuthEvent)
	next     uint64
}

// Subscribe registers handler and delivers an EventBootstrap event carrying
// current() before returning.
func (b *Bus) Subscribe(handler func(goSession.AuthEvent), current func() *goSession.Session) goSession.Subscription {
	b.order.Lock()
	defer b.order.Unlock()

	b.mu.Lock()
	if b.handlers == nil {
		b.handlers = make(map[uint64]func(goSession.AuthEvent))
	}
	id := b.next
	b.next++
	b.handlers[id] = handler
	b.mu.Unlock()

	var sess *goSession.Session
	if current != nil {
		sess = current()
	}
	handler(goSession.AuthEvent{Kind: goSession.EventBootstrap, Session: sess})
	return &subscription{bus: b, id: id}
}

// Emit runs change and delivers the event it returns. No other Emit or
// Subscribe interleaves between the two.
func (b *Bus) Emit(change func() (goSession.AuthEvent, bool)) {
	b.order.Lock()
	defer b.order.Unlock()

	ev, ok := change()
	if !ok {
		return
	}

	b.mu.Lock()
	hs := make([]func(goSession.AuthEvent), 0, len(b.handlers))
	for _, h := range b.handlers {
		hs = append(hs, h)
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

type subscription struct {
	bus  *Bus
	id   uint64
	once sync.Once
}

func (s *subscription) Release() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.handlers, s.id)
		s.bus.mu.Unlock()
	})
}
