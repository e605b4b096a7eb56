package wsstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPingQueueFIFO(t *testing.T) {
	var q PingQueue
	require.True(t, q.Empty())

	q.Push([]byte("a"))
	q.Push([]byte("b"))
	require.False(t, q.Empty())

	front, ok := q.Front()
	require.True(t, ok)
	require.Equal(t, []byte("a"), front)

	q.Pop()
	front, ok = q.Front()
	require.True(t, ok)
	require.Equal(t, []byte("b"), front)

	q.Pop()
	require.True(t, q.Empty())
	_, ok = q.Front()
	require.False(t, ok)
}

func TestPingQueuePopEmptyIsNoop(t *testing.T) {
	var q PingQueue
	q.Pop()
	require.True(t, q.Empty())
}
