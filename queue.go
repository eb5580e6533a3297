package trace

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// action is a deferred operation executed by the background worker.
type action func()

type actionNode struct {
	fn   action
	next atomic.Pointer[actionNode]
}

// actionQueue is a lock-free multi-producer FIFO of deferred operations.
// Only the background worker dequeues.
type actionQueue struct {
	head atomic.Pointer[actionNode]
	tail atomic.Pointer[actionNode]
}

func newActionQueue() *actionQueue {
	q := &actionQueue{}
	dummy := &actionNode{}
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// enqueue appends fn. Safe for concurrent producers.
func (q *actionQueue) enqueue(fn action) {
	n := &actionNode{fn: fn}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next == nil {
			if tail.next.CompareAndSwap(nil, n) {
				q.tail.CompareAndSwap(tail, n)
				return
			}
		} else {
			// Help a stalled producer advance the tail
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// dequeue removes the oldest action. Single-consumer only.
func (q *actionQueue) dequeue() (action, bool) {
	head := q.head.Load()
	next := head.next.Load()
	if next == nil {
		return nil, false
	}
	q.head.Store(next)
	fn := next.fn
	next.fn = nil
	return fn, true
}

// isEmpty reports whether no action is pending.
func (q *actionQueue) isEmpty() bool {
	return q.head.Load().next.Load() == nil
}

// boundedQueue is the per-entry-type MPSC staging queue. A weighted
// semaphore counts free slots; producers block when capacity is reached.
// A permit is held from enqueue until the worker finishes the write, so at
// most capacity entries are in flight at any instant.
type boundedQueue struct {
	slots *semaphore.Weighted

	mu    sync.Mutex
	items []any
}

func newBoundedQueue(capacity int64) *boundedQueue {
	return &boundedQueue{slots: semaphore.NewWeighted(capacity)}
}

// acquireSlot blocks until a free slot is available.
func (q *boundedQueue) acquireSlot() {
	// Background-context acquire cannot fail
	_ = q.slots.Acquire(context.Background(), 1)
}

// releaseSlot returns one slot to producers.
func (q *boundedQueue) releaseSlot() {
	q.slots.Release(1)
}

// push appends an entry. Caller must already hold a slot.
func (q *boundedQueue) push(entry any) {
	q.mu.Lock()
	q.items = append(q.items, entry)
	q.mu.Unlock()
}

// pop removes the oldest entry without releasing its slot.
func (q *boundedQueue) pop() (any, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	entry := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return entry, true
}
