package queue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaxHeapOrder(t *testing.T) {
	q := NewMax(4)
	q.Push(Item{Node: 1, Key: 0.5})
	q.Push(Item{Node: 2, Key: 3.0})
	q.Push(Item{Node: 3, Key: -1.0})
	q.Push(Item{Node: 4, Key: 1.5})

	want := []uint32{2, 4, 1, 3}
	for _, w := range want {
		item, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, w, item.Node)
	}
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestMaxHeapReset(t *testing.T) {
	q := NewMax(2)
	q.Push(Item{Node: 1, Key: 1})
	q.Reset()
	require.Equal(t, 0, q.Len())
}
