// Package rqueue provides a bounded blocking queue that hands out its items in
// random order.
package rqueue

import (
	"sync"

	rng "github.com/leesper/go_rng"
)

// Queue is a bounded buffer. Push blocks while the queue holds max items. Pop
// blocks until the queue holds more than min items, then removes a random one.
// Once closed, Pop drains whatever is left regardless of min.
//
// Every pushed item is popped exactly once; there is no other ordering.
type Queue struct {
	mu       sync.Mutex
	hasRoom  *sync.Cond
	hasItems *sync.Cond

	items    []interface{}
	min, max int
	closed   bool
	r        *rng.UniformGenerator
}

// New creates a queue. A max of zero or less means the queue is unbounded.
func New(min, max int, seed int64) *Queue {
	if max > 0 && min >= max {
		min = max - 1
	}
	if min < 0 {
		min = 0
	}
	q := &Queue{
		min: min,
		max: max,
		r:   rng.NewUniformGenerator(seed),
	}
	if max > 0 {
		q.items = make([]interface{}, 0, max)
	}
	q.hasRoom = sync.NewCond(&q.mu)
	q.hasItems = sync.NewCond(&q.mu)
	return q
}

// Push adds an item, waiting for room. It returns false if the queue was
// closed before the item could be added.
func (q *Queue) Push(item interface{}) bool {
	q.mu.Lock()
	for !q.closed && q.max > 0 && len(q.items) >= q.max {
		q.hasRoom.Wait()
	}
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.hasItems.Signal()
	return true
}

// Pop removes a random item. ok is false once the queue is closed and empty.
func (q *Queue) Pop() (item interface{}, ok bool) {
	q.mu.Lock()
	for !q.closed && len(q.items) <= q.min {
		q.hasItems.Wait()
	}
	n := len(q.items)
	if n == 0 {
		q.mu.Unlock()
		return nil, false
	}
	i := int(q.r.Int64n(int64(n)))
	q.items[i], q.items[n-1] = q.items[n-1], q.items[i]
	item = q.items[n-1]
	q.items[n-1] = nil
	q.items = q.items[:n-1]
	q.mu.Unlock()
	q.hasRoom.Signal()
	return item, true
}

// Close wakes every waiting caller. Pushes fail from now on and pops drain the
// remaining items.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.hasRoom.Broadcast()
	q.hasItems.Broadcast()
}

// Len returns the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
