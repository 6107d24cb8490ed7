package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded FIFO. Push never blocks, which makes it safe to call
// while holding other locks. A single consumer drains it with Wait.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		signal: make(chan struct{}, 1),
	}
}

func (q *Queue[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}

	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Drain removes and returns everything queued, oldest first.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Wait blocks until at least one item is queued, then drains the queue.
func (q *Queue[T]) Wait(ctx context.Context) ([]T, error) {
	for {
		if items := q.Drain(); len(items) > 0 {
			return items, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		}
	}
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
