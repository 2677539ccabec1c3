package queue

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/mem/heap"
	"github.com/joshuapare/memkit/pkg/types"
)

func Test_Queue_Scenario(t *testing.T) {
	q := New[int]()
	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	v, ok := q.Deque()
	require.True(t, ok)
	require.Equal(t, 1, v)
	q.Enqueue(4)
	for _, want := range []int{2, 3, 4} {
		v, ok = q.Deque()
		require.True(t, ok)
		require.Equal(t, want, v)
	}
	require.True(t, q.IsEmpty())
	_, ok = q.Deque()
	require.False(t, ok)
}

func Test_Queue_FIFOAcrossGrowth(t *testing.T) {
	q := New[string](WithCapacity(4))
	in := []string{"a", "b", "c", "d", "e"}
	for _, s := range in {
		q.Enqueue(s)
	}
	require.Equal(t, 5, q.Len())
	require.Equal(t, 8, q.Cap())
	for _, want := range in {
		v, ok := q.Deque()
		require.True(t, ok)
		require.Equal(t, want, v)
	}
	require.True(t, q.IsEmpty())
}

func Test_Queue_GrowthWhileWrapped(t *testing.T) {
	q := New[int](WithCapacity(4))
	q.Enqueue(1)
	q.Enqueue(2)
	q.Deque()
	q.Deque()
	// bottom is now 2; these wrap around the end.
	for i := 10; i < 15; i++ {
		q.Enqueue(i)
	}
	for i := 10; i < 15; i++ {
		v, ok := q.PeekAt(i - 10)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	require.Zero(t, q.r.bottom, "growth resets bottom")
	require.Equal(t, 5, q.r.top)
}

func Test_Queue_PrequePeek(t *testing.T) {
	q := New[int](WithCapacity(2))
	q.Enqueue(2)
	q.Preque(1)
	q.Preque(0)
	q.Enqueue(3)

	v, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 0, v)
	for i := range 4 {
		v, ok = q.PeekAt(i)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok = q.PeekAt(4)
	require.False(t, ok)
	_, ok = q.PeekAt(-1)
	require.False(t, ok)
	require.Equal(t, 4, q.Len(), "peek does not consume")
}

func Test_Queue_LimitEvictsOldest(t *testing.T) {
	q := New[int](WithLimit(3))
	for i := 1; i <= 5; i++ {
		q.Enqueue(i)
	}
	require.Equal(t, 3, q.Len())
	require.Equal(t, 4, q.Cap(), "limit bounds the buffer")
	for _, want := range []int{3, 4, 5} {
		v, _ := q.Deque()
		require.Equal(t, want, v)
	}

	q.Enqueue(1)
	q.Enqueue(2)
	q.Enqueue(3)
	q.Preque(0)
	got := []int{}
	for !q.IsEmpty() {
		v, _ := q.Deque()
		got = append(got, v)
	}
	require.Equal(t, []int{0, 1, 2}, got, "preque on a full limited queue drops the back")
}

func Test_Queue_ClearDropsReferences(t *testing.T) {
	q := New[*int](WithCapacity(4))
	x := 1
	q.Enqueue(&x)
	q.Enqueue(&x)
	q.Clear()
	require.True(t, q.IsEmpty())
	for _, p := range q.buf {
		require.Nil(t, p)
	}
	q.Enqueue(&x)
	require.Equal(t, 1, q.Len())
}

func Test_Queue_RandomOps_MatchesSlice(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	q := New[int](WithCapacity(2))
	var model []int
	for step := range 5000 {
		switch rng.Intn(4) {
		case 0, 1:
			q.Enqueue(step)
			model = append(model, step)
		case 2:
			q.Preque(step)
			model = append([]int{step}, model...)
		default:
			v, ok := q.Deque()
			require.Equal(t, len(model) > 0, ok, "step %d", step)
			if ok {
				require.Equal(t, model[0], v, "step %d", step)
				model = model[1:]
			}
		}
		require.Equal(t, len(model), q.Len(), "step %d", step)
		require.Less(t, q.Len(), q.Cap(), "one slot stays unused")
	}
}

func Test_Stack_LIFO(t *testing.T) {
	s := NewStack[string]()
	s.Push("a")
	s.Push("b")
	s.Push("c")

	top, ok := s.Peek()
	require.True(t, ok)
	require.Equal(t, "c", top)
	bottom, ok := s.PeekAt(2)
	require.True(t, ok)
	require.Equal(t, "a", bottom)

	for _, want := range []string{"c", "b", "a"} {
		v, ok := s.Pop()
		require.True(t, ok)
		require.Equal(t, want, v)
	}
	require.True(t, s.IsEmpty())
	_, ok = s.Pop()
	require.False(t, ok)
}

func Test_Stack_GrowthAndLimit(t *testing.T) {
	s := NewStack[int](WithCapacity(2))
	for i := range 10 {
		s.Push(i)
	}
	require.Equal(t, 10, s.Len())
	for i := 9; i >= 0; i-- {
		v, _ := s.Pop()
		require.Equal(t, i, v)
	}

	l := NewStack[int](WithLimit(2))
	l.Push(1)
	l.Push(2)
	l.Push(3)
	require.Equal(t, 2, l.Len())
	v, _ := l.PeekAt(1)
	assert.Equal(t, 2, v, "bottom entry was evicted")

	l.Clear()
	require.True(t, l.IsEmpty())
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func newTestHeap(t *testing.T) *heap.Heap {
	t.Helper()
	h := heap.New(heap.WithUnit(4096))
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func Test_DataQueue_FIFOAcrossGrowth(t *testing.T) {
	h := newTestHeap(t)
	q, err := NewDataQueue(h, 4, WithCapacity(4))
	require.NoError(t, err)
	require.Equal(t, 4, q.ElemSize())

	// Wrap before growing.
	require.NoError(t, q.Enqueue(u32(100)))
	buf := make([]byte, 4)
	require.NoError(t, q.Deque(buf))

	for i := range uint32(20) {
		require.NoError(t, q.Enqueue(u32(i)))
	}
	require.NoError(t, q.Preque(u32(99)))
	require.Equal(t, 21, q.Len())

	require.NoError(t, q.Deque(buf))
	require.Equal(t, uint32(99), binary.LittleEndian.Uint32(buf))
	for i := range uint32(20) {
		require.NoError(t, q.PeekAt(0, buf))
		require.Equal(t, i, binary.LittleEndian.Uint32(buf))
		require.NoError(t, q.Deque(buf))
		require.Equal(t, i, binary.LittleEndian.Uint32(buf))
	}
	require.True(t, q.IsEmpty())
	require.ErrorIs(t, q.Deque(buf), ErrEmpty)
	require.ErrorIs(t, q.Deque(buf), types.ErrNotFound)
	require.NoError(t, h.Check())
}

func Test_DataQueue_BufferChecks(t *testing.T) {
	h := newTestHeap(t)
	q, err := NewDataQueue(h, 8)
	require.NoError(t, err)

	require.ErrorIs(t, q.Enqueue(make([]byte, 3)), ErrElementSize)
	require.NoError(t, q.Enqueue(make([]byte, 8)))
	require.ErrorIs(t, q.Peek(make([]byte, 7)), ErrElementSize)
	require.NoError(t, q.Peek(make([]byte, 16)), "larger destination is fine")

	_, err = NewDataQueue(h, 0)
	require.ErrorIs(t, err, types.ErrInvalid)
}

func Test_DataQueue_CloseReleasesBlock(t *testing.T) {
	h := newTestHeap(t)
	before := h.Stats().Blocks
	q, err := NewDataQueue(h, 4, WithCapacity(4))
	require.NoError(t, err)
	for i := range uint32(9) {
		require.NoError(t, q.Enqueue(u32(i)))
	}
	require.Equal(t, before+1, h.Stats().Blocks)
	ref := q.Ref()
	require.True(t, h.Valid(ref))

	require.NoError(t, q.Close())
	require.NoError(t, q.Close(), "second close is a no-op")
	require.Equal(t, before, h.Stats().Blocks)
	require.False(t, h.Valid(ref))
	require.ErrorIs(t, q.Enqueue(u32(1)), ErrClosed)
	require.True(t, q.IsEmpty())
}

func Test_DataQueue_Limit(t *testing.T) {
	h := newTestHeap(t)
	q, err := NewDataQueue(h, 4, WithLimit(2))
	require.NoError(t, err)
	for i := range uint32(5) {
		require.NoError(t, q.Enqueue(u32(i)))
	}
	require.Equal(t, 2, q.Len())
	buf := make([]byte, 4)
	require.NoError(t, q.Deque(buf))
	require.Equal(t, uint32(3), binary.LittleEndian.Uint32(buf))
}

func Test_DataStack_LIFO(t *testing.T) {
	h := newTestHeap(t)
	s, err := NewDataStack(h, 4, WithCapacity(2))
	require.NoError(t, err)
	for i := range uint32(6) {
		require.NoError(t, s.Push(u32(i)))
	}
	buf := make([]byte, 4)
	require.NoError(t, s.PeekAt(5, buf))
	require.Equal(t, uint32(0), binary.LittleEndian.Uint32(buf))
	for i := int32(5); i >= 0; i-- {
		require.NoError(t, s.Pop(buf))
		require.Equal(t, uint32(i), binary.LittleEndian.Uint32(buf))
	}
	require.ErrorIs(t, s.Pop(buf), ErrEmpty)

	require.NoError(t, s.Push(u32(1)))
	s.Clear()
	require.True(t, s.IsEmpty())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Push(u32(1)), ErrClosed)
}

func Test_DataStack_DefaultHeap(t *testing.T) {
	s, err := NewDataStack(nil, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Push([]byte{1, 2}))
	out := make([]byte, 2)
	require.NoError(t, s.Pop(out))
	require.Equal(t, []byte{1, 2}, out)
}
