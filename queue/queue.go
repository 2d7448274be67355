// Package queue implements an ordered, mutex-guarded FIFO shared between a
// producer (toolpath generation, UI-driven recording) and a consumer (the
// flow-controlled streamer).
package queue

import (
	"errors"
	"sync"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// Queue is a thread-safe FIFO preserving insertion order. A snapshot never
// observes a partially appended element.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
	}
}

// Push appends item and pulses the notification channel.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Pop removes and returns the oldest item. ok is false when the queue is
// empty.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return item, false
	}
	item = q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Snapshot returns an ordered copy of all items without removing them.
func (q *Queue[T]) Snapshot() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]T, len(q.items))
	copy(items, q.items)
	return items
}

// Delete removes the element at index, preserving the relative order of the
// rest. Returns ErrIndexOutOfRange if index is negative or >= Len().
func (q *Queue[T]) Delete(index int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.items) {
		return ErrIndexOutOfRange
	}
	q.items = append(q.items[:index], q.items[index+1:]...)
	return nil
}

// Clear removes all items.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Notify returns a channel that receives a pulse after each Push, so consumers
// can block on new items instead of polling. Pulses coalesce: one receive may
// cover several pushes.
func (q *Queue[T]) Notify() <-chan struct{} {
	return q.notify
}
