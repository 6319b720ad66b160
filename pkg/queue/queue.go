package queue

import (
	"sync"
	"time"
)

// Item is a unit of work waiting for its next attempt.
type Item[T any] struct {
	ID       string
	Value    T
	RetryAt  time.Time
	Attempts int
}

// Queue holds items until they are due. It is safe for concurrent use.
type Queue[T any] struct {
	items []*Item[T]
	now   func() time.Time
	mu    sync.Mutex
}

func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]*Item[T], 0),
		now:   time.Now,
	}
}

func (q *Queue[T]) Enqueue(item *Item[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
}

// Dequeue removes and returns the first item whose RetryAt has passed, or
// nil when nothing is due.
func (q *Queue[T]) Dequeue() *Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	for i, item := range q.items {
		if !item.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return item
		}
	}
	return nil
}

func (q *Queue[T]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Snapshot() []*Item[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]*Item[T], len(q.items))
	copy(result, q.items)
	return result
}
