package queue

import (
	"container/heap"
	"time"
)

// PriorityQueueItem wraps a message with the fee-priority the scheduler
// admits it by and the timestamp it entered the queue at. Items are
// immutable once created; priority and timestamp are read by Less for
// ordering and by Age for starvation observability.
type PriorityQueueItem[T any] struct {
	message T

	// priority orders admission: higher values are dequeued first.
	priority uint64

	// index is maintained by the heap.Interface methods.
	index int

	// enqueuedAt marks when the item joined the queue, used both to
	// break priority ties oldest-first and to measure how long the
	// longest-waiting item has been pending.
	enqueuedAt time.Time
}

// NewPriorityQueueItem creates an item. invertPriorityOrder flips the
// ordering so that lower priority values are dequeued first — used by
// callers that admit in ascending-fee order rather than descending.
func NewPriorityQueueItem[T any](message T, priority uint64, invertPriorityOrder bool) *PriorityQueueItem[T] {
	if invertPriorityOrder {
		priority = ^priority
	}

	return &PriorityQueueItem[T]{
		message:    message,
		priority:   priority,
		index:      -1,
		enqueuedAt: time.Now(),
	}
}

// Message returns the message stored in the item.
func (item *PriorityQueueItem[T]) Message() T {
	return item.message
}

// Age reports how long the item has been sitting in the queue as of now.
func (item *PriorityQueueItem[T]) Age(now time.Time) time.Duration {
	return now.Sub(item.enqueuedAt)
}

var _ heap.Interface = (*PriorityQueue[any])(nil)

// PriorityQueue implements heap.Interface: items with higher priority are
// dequeued first, and items of equal priority are dequeued oldest-first by
// enqueue timestamp. This is the scheduler's fairness guarantee from §4.6 —
// a transaction can only be overtaken by strictly higher-fee transactions,
// never starved by a stream of same-fee arrivals.
//
// All exported methods are NOT safe for concurrent access; callers must
// provide their own synchronization (the scheduler guards its queue with a
// single mutex).
type PriorityQueue[T any] []*PriorityQueueItem[T]

func NewPriorityQueue[T any]() PriorityQueue[T] {
	return PriorityQueue[T]{}
}

func (pq PriorityQueue[T]) Len() int { return len(pq) }

func (pq PriorityQueue[T]) Less(i, j int) bool {
	if pq[i].priority > pq[j].priority {
		return true
	}
	if pq[i].priority < pq[j].priority {
		return false
	}
	return pq[i].enqueuedAt.Before(pq[j].enqueuedAt)
}

func (pq PriorityQueue[T]) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *PriorityQueue[T]) Push(x any) {
	n := len(*pq)
	item, ok := x.(*PriorityQueueItem[T])
	if !ok {
		return
	}
	item.index = n
	*pq = append(*pq, item)
}

func (pq *PriorityQueue[T]) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// OldestAge returns how long the longest-waiting item in the queue has
// been pending, or false if the queue is empty. It scans the heap's
// backing slice rather than tracking a separate pointer since eviction of
// the oldest item happens implicitly through normal Pop calls, not through
// a dedicated path — keeping this a read-only O(n) query avoids adding
// bookkeeping to Push/Pop/Swap for a value only metrics consult.
func (pq PriorityQueue[T]) OldestAge(now time.Time) (time.Duration, bool) {
	if len(pq) == 0 {
		return 0, false
	}
	oldest := pq[0].enqueuedAt
	for _, item := range pq[1:] {
		if item.enqueuedAt.Before(oldest) {
			oldest = item.enqueuedAt
		}
	}
	return now.Sub(oldest), true
}
