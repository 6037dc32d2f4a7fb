package containers_test

import (
	"testing"

	"github.com/spaghettifunk/texstream/engine/containers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueue_FIFO(t *testing.T) {
	rq := containers.NewRingQueue[int](3)
	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))
	require.NoError(t, rq.Enqueue(3))
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue(4), containers.ErrQueueFull)

	v, err := rq.Peek()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	for _, want := range []int{1, 2, 3} {
		got, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.True(t, rq.IsEmpty())
	_, err = rq.Dequeue()
	assert.ErrorIs(t, err, containers.ErrQueueEmpty)
}

func TestRingQueue_PushOverwritesOldest(t *testing.T) {
	rq := containers.NewRingQueue[string](2)
	rq.Push("a")
	rq.Push("b")
	rq.Push("c")

	var seen []string
	rq.Each(func(s string) { seen = append(seen, s) })
	assert.Equal(t, []string{"b", "c"}, seen)
	assert.Equal(t, 2, rq.Len())
}
