// Package handoff carries items from one goroutine to another in strict FIFO order.
// Send never blocks; Receive blocks until an item is available or the context ends.
package handoff

import (
	"context"
	"sync"
)

type Queue[T any] struct {
	mu     sync.Mutex
	buf    *ringBuffer[T]
	notify chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		buf:    newRingBuffer[T](),
		notify: make(chan struct{}, 1),
	}
}

func (q *Queue[T]) Send(v T) {
	q.mu.Lock()
	q.buf.push(v)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Receive returns the oldest queued item. Items already queued when ctx ends
// are still returned before ctx.Err().
func (q *Queue[T]) Receive(ctx context.Context) (T, error) {
	for {
		if v, ok := q.tryPop(); ok {
			return v, nil
		}
		select {
		case <-q.notify:
		case <-ctx.Done():
			if v, ok := q.tryPop(); ok {
				return v, nil
			}
			var zero T
			return zero, ctx.Err()
		}
	}
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.len
}

func (q *Queue[T]) tryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.buf.pop()
}
