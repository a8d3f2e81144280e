package fastgrep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePushPop(t *testing.T) {
	q := newQueue[int](4)
	q.Push(1)
	q.Push(2)

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestQueuePopAfterCloseDrainsRemaining(t *testing.T) {
	q := newQueue[string](4)
	q.Push("a")
	q.Push("b")
	q.Close()

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "b", v)

	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueueCloseIsIdempotent(t *testing.T) {
	q := newQueue[int](1)
	assert.NotPanics(t, func() {
		q.Close()
		q.Close()
	})
}

func TestQueuePushAfterClosePanics(t *testing.T) {
	q := newQueue[int](1)
	q.Close()
	assert.Panics(t, func() {
		q.Push(1)
	})
}
