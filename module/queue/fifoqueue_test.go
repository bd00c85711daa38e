package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFifoQueue_PushBackPopFrontOrder(t *testing.T) {
	q := NewFifoQueue(10, nil)

	require.True(t, q.PushBack(1))
	require.True(t, q.PushBack(2))
	require.True(t, q.PushBack(3))

	v, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.PopFront()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.Equal(t, 1, q.Len())
}

func TestFifoQueue_PushFrontTakesPriority(t *testing.T) {
	q := NewFifoQueue(10, nil)

	require.True(t, q.PushBack("b"))
	require.True(t, q.PushFront("a"))

	v, ok := q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = q.PopFront()
	require.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestFifoQueue_DropsPastCapacity(t *testing.T) {
	q := NewFifoQueue(2, nil)

	require.True(t, q.PushBack(1))
	require.True(t, q.PushBack(2))
	assert.False(t, q.PushBack(3))
	assert.Equal(t, 2, q.Len())
}

func TestFifoQueue_ObserverReceivesEveryLengthChange(t *testing.T) {
	var lengths []int
	q := NewFifoQueue(10, func(n int) { lengths = append(lengths, n) })

	q.PushBack(1)
	q.PushBack(2)
	q.PopFront()

	assert.Equal(t, []int{1, 2, 1}, lengths)
}

func TestFifoQueue_FrontDoesNotRemove(t *testing.T) {
	q := NewFifoQueue(10, nil)
	q.PushBack(42)

	v, ok := q.Front()
	require.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, q.Len())
}

func TestFifoQueue_EmptyPopReturnsFalse(t *testing.T) {
	q := NewFifoQueue(10, nil)
	_, ok := q.PopFront()
	assert.False(t, ok)
}
