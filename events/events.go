package events

import (
	"sync"
)

// Broker implements a fan-out dispatcher for controller notifications. Each subscriber
// gets its own buffered channel; publishing never blocks the publisher: when a
// subscriber's buffer is full, its oldest pending event is dropped to make room. This
// keeps a stalled consumer (eg: a redraw-heavy UI) from ever back-pressuring the
// serial line processing loop.
type Broker[T any] struct {
	mu          sync.Mutex
	closed      bool
	subscribers map[string]chan T
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[string]chan T),
	}
}

// Subscribe registers a named subscriber with the given channel buffer size and
// returns the channel events will be delivered to. Subscribing twice with the same
// name replaces (and closes) the previous subscription.
func (b *Broker[T]) Subscribe(name string, size int) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if previousCh, ok := b.subscribers[name]; ok {
		close(previousCh)
	}

	ch := make(chan T, size)
	b.subscribers[name] = ch
	return ch
}

// Unsubscribe removes and closes the named subscription. It is a no-op for unknown
// names.
func (b *Broker[T]) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[name]; ok {
		close(ch)
		delete(b.subscribers, name)
	}
}

// Publish delivers t to every subscriber. Returns the number of subscribers that had
// their oldest event dropped to make room.
func (b *Broker[T]) Publish(t T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0
	}

	dropped := 0
	for _, ch := range b.subscribers {
		select {
		case ch <- t:
			continue
		default:
		}
		// Buffer full: drop the oldest pending event, then retry. We hold the lock, so
		// no other publisher can race the freed slot. With an unbuffered channel and no
		// ready receiver both selects miss and the event is dropped instead.
		dropped++
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- t:
		default:
		}
	}
	return dropped
}

// Close closes all subscriber channels, signaling that no more events will be
// published. Publish becomes a no-op afterwards.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[string]chan T)
}
