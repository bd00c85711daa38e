package queue

import (
	"container/heap"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityQueue_HigherPriorityFirst(t *testing.T) {
	pq := NewPriorityQueue[string]()
	heap.Push(&pq, NewPriorityQueueItem("low", 1, false))
	heap.Push(&pq, NewPriorityQueueItem("high", 10, false))
	heap.Push(&pq, NewPriorityQueueItem("mid", 5, false))

	first := heap.Pop(&pq).(*PriorityQueueItem[string])
	assert.Equal(t, "high", first.Message())

	second := heap.Pop(&pq).(*PriorityQueueItem[string])
	assert.Equal(t, "mid", second.Message())
}

func TestPriorityQueue_EqualPriorityOldestFirst(t *testing.T) {
	pq := NewPriorityQueue[string]()
	first := NewPriorityQueueItem("first", 1, false)
	time.Sleep(time.Millisecond)
	second := NewPriorityQueueItem("second", 1, false)

	heap.Push(&pq, second)
	heap.Push(&pq, first)

	popped := heap.Pop(&pq).(*PriorityQueueItem[string])
	assert.Equal(t, "first", popped.Message())
}

func TestPriorityQueue_InvertedOrderDequeuesLowestFirst(t *testing.T) {
	pq := NewPriorityQueue[string]()
	heap.Push(&pq, NewPriorityQueueItem("low", 1, true))
	heap.Push(&pq, NewPriorityQueueItem("high", 10, true))

	popped := heap.Pop(&pq).(*PriorityQueueItem[string])
	assert.Equal(t, "low", popped.Message())
}

func TestPriorityQueue_OldestAge(t *testing.T) {
	pq := NewPriorityQueue[string]()

	_, ok := pq.OldestAge(time.Now())
	assert.False(t, ok, "empty queue has no oldest item")

	oldest := NewPriorityQueueItem("oldest", 1, false)
	time.Sleep(5 * time.Millisecond)
	newest := NewPriorityQueueItem("newest", 10, false)

	heap.Push(&pq, newest)
	heap.Push(&pq, oldest)

	age, ok := pq.OldestAge(time.Now())
	require.True(t, ok)
	assert.GreaterOrEqual(t, age, 5*time.Millisecond)
}

func TestPriorityQueueItem_Age(t *testing.T) {
	item := NewPriorityQueueItem("x", 1, false)
	time.Sleep(time.Millisecond)
	assert.Greater(t, item.Age(time.Now()), time.Duration(0))
}
