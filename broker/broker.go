// Package broker implements a small fan-out broker used to deliver core events
// (connection changes, streaming completion, inbound messages) to any number of
// external listeners. The core holds no reference to its listeners beyond their
// subscription channels.
package broker

import "sync"

type Broker[T any] struct {
	mu          sync.Mutex
	subscribers map[string]chan T
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subscribers: make(map[string]chan T),
	}
}

// Subscribe registers a subscriber under name with the given channel buffer
// size and returns the receive-only channel published events arrive on.
// Subscribing again under the same name replaces (and closes) the previous
// subscription.
func (b *Broker[T]) Subscribe(name string, size int) <-chan T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old, ok := b.subscribers[name]; ok {
		close(old)
	}

	ch := make(chan T, size)
	b.subscribers[name] = ch
	return ch
}

// Unsubscribe removes and closes the named subscription.
func (b *Broker[T]) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[name]; ok {
		close(ch)
		delete(b.subscribers, name)
	}
}

// Publish sends t to every subscriber. Publishing with no subscribers is a
// no-op: events are advisory, nobody is required to listen.
func (b *Broker[T]) Publish(t T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		go func() {
			// Each delivery runs concurrently so a slow subscriber can't block
			// the others. Close() may race with an in-flight delivery; the
			// recover turns the resulting send-on-closed-channel panic into a
			// dropped event, which is the expected shutdown behavior.
			defer func() { recover() }()
			ch <- t
		}()
	}
}

// Close closes all subscriber channels, signaling that no more events will be
// published.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[string]chan T)
}
