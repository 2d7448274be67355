package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue[int]()
	require.True(t, q.Empty())

	for i := range 5 {
		q.Push(i)
	}
	require.Equal(t, 5, q.Len())

	for i := range 5 {
		item, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, item)
	}
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestQueueSnapshot(t *testing.T) {
	q := NewQueue[string]()
	q.Push("a")
	q.Push("b")
	q.Push("c")

	snapshot := q.Snapshot()
	require.Equal(t, []string{"a", "b", "c"}, snapshot)
	// The snapshot is a copy: the queue is unaffected.
	require.Equal(t, 3, q.Len())
	snapshot[0] = "x"
	item, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, "a", item)
}

func TestQueueDelete(t *testing.T) {
	q := NewQueue[int]()
	for i := range 4 {
		q.Push(i)
	}

	require.NoError(t, q.Delete(1))
	require.Equal(t, []int{0, 2, 3}, q.Snapshot())

	// Withdraw-last: delete at Len()-1.
	require.NoError(t, q.Delete(q.Len()-1))
	require.Equal(t, []int{0, 2}, q.Snapshot())

	require.ErrorIs(t, q.Delete(2), ErrIndexOutOfRange)
	require.ErrorIs(t, q.Delete(-1), ErrIndexOutOfRange)
}

func TestQueueClear(t *testing.T) {
	q := NewQueue[int]()
	q.Push(1)
	q.Push(2)
	q.Clear()
	require.True(t, q.Empty())
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestQueueNotify(t *testing.T) {
	q := NewQueue[int]()
	select {
	case <-q.Notify():
		t.Fatal("unexpected pulse before push")
	default:
	}

	q.Push(1)
	q.Push(2)
	<-q.Notify()
}

func TestQueueConcurrentProducerConsumer(t *testing.T) {
	q := NewQueue[int]()
	const n = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range n {
			q.Push(i)
		}
	}()

	// Pops must return a subsequence of the pushes in original relative order.
	var got []int
	for len(got) < n {
		if item, ok := q.Pop(); ok {
			got = append(got, item)
		} else {
			select {
			case <-q.Notify():
			default:
			}
		}
	}
	wg.Wait()

	for i, item := range got {
		require.Equal(t, i, item)
	}
}
