// Package queue provides the unbounded FIFO used by the single-writer
// event loops (the controller dispatcher and the in-process peer bus).
package queue

import "sync"

// Queue is an unbounded FIFO with many producers and one consumer.
//
// The controller dispatcher drains app commits and engine notifications
// from it; peer.Bus drains joins, leaves and proposals. Neither producer
// may block on a slow consumer, so Enqueue only appends.
//
// The consumer pairs Wait with its ticker or ctx.Done in a select, then
// drains with TryDequeue. Queue is off limits to the audio path: Enqueue
// locks and may allocate.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	signal chan struct{} // cap 1; closed by Close
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items:  make([]T, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue.
// Returns false if the queue is closed.
func (q *Queue[T]) Enqueue(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, item)

	// One pending wake-up covers any number of items.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
// Returns (zero, false) if the queue is empty.
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]

	q.items[0] = zero // drop the reference held by the backing array

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return item, true
}

// Wait returns the wake-up channel. A receive means items may be queued,
// not that they are; after Close it never blocks, so a consumer should
// check Closed and Len before going back to sleep.
func (q *Queue[T]) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more items will be enqueued. Items already queued
// can still be dequeued. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
