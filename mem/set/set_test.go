package set

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/pkg/types"
)

type record struct {
	id   int
	name string
	ptr  *int
}

func Test_Set_CountsAndSlabs(t *testing.T) {
	for _, k := range []int{0, 1, 31, 32, 33, 64, 100} {
		s := New[record](WithSlabSize(32))
		var got []*record
		for i := range k {
			p := s.Get()
			require.NotNil(t, p)
			p.id = i
			got = append(got, p)
		}
		require.Equal(t, k, s.Count(), "k=%d", k)
		require.Equal(t, (k+31)/32, s.Slabs(), "k=%d", k)
		for _, p := range got {
			require.True(t, s.Valid(p))
		}
	}
}

func Test_Set_SlabSizeRoundsUp(t *testing.T) {
	assert.Equal(t, 64, New[int](WithSlabSize(33)).SlabSize())
	assert.Equal(t, 32, New[int](WithSlabSize(1)).SlabSize())
	assert.Equal(t, DefaultSlabSize, New[int]().SlabSize())
	assert.Equal(t, DefaultSlabSize, New[int](WithSlabSize(0)).SlabSize())
}

func Test_Set_DeleteAndReuse(t *testing.T) {
	s := New[record](WithSlabSize(32))
	a := s.Get()
	b := s.Get()
	v := 5
	b.name, b.ptr = "b", &v
	c := s.Get()

	require.Equal(t, 0, s.Index(a))
	require.Equal(t, 1, s.Index(b))
	require.Equal(t, 2, s.Index(c))

	require.True(t, s.Delete(b))
	require.False(t, s.Valid(b))
	require.False(t, s.Delete(b), "double delete")
	require.Equal(t, 2, s.Count())
	require.Equal(t, record{}, *b, "deleted slot is zeroed")

	// The lowest clear bit is reused.
	d := s.Get()
	require.Same(t, b, d)
	require.Equal(t, 1, s.Slabs(), "slabs are never freed or added while room remains")
}

func Test_Set_ForeignPointers(t *testing.T) {
	s := New[record](WithSlabSize(32))
	_ = s.Get()
	var outside record
	require.False(t, s.Valid(&outside))
	require.False(t, s.Delete(&outside))
	require.Equal(t, InvalidIndex, s.Index(&outside))
	require.False(t, s.Valid(nil))

	// Nil never belongs to a set.
	words := New[[2]int64](WithSlabSize(32))
	p := words.Get()
	require.False(t, words.Valid((*[2]int64)(nil)))
	require.Equal(t, 0, words.Index(p))
}

func Test_Set_MemberAndUsedMember(t *testing.T) {
	s := New[int](WithSlabSize(32))
	require.Nil(t, s.UsedMember(70))

	p := s.Member(70)
	require.NotNil(t, p)
	*p = 7
	require.Equal(t, 3, s.Slabs(), "slabs chained up to the index")
	require.Equal(t, 1, s.Count())
	require.Same(t, p, s.UsedMember(70))
	require.Equal(t, 70, s.Index(p))
	require.Nil(t, s.UsedMember(69))
	require.Nil(t, s.Member(-1))

	// Member of an already used slot does not double count.
	require.Same(t, p, s.Member(70))
	require.Equal(t, 1, s.Count())

	require.True(t, s.DeleteIndex(70))
	require.False(t, s.DeleteIndex(70))
	require.False(t, s.DeleteIndex(500))
	require.Nil(t, s.UsedMember(70))
}

func Test_Set_ForAllStopsOnError(t *testing.T) {
	s := New[int](WithSlabSize(32))
	for i := range 40 {
		*s.Get() = i
	}
	require.True(t, s.DeleteIndex(3))

	var seen []int
	require.NoError(t, s.ForAll(func(i int, p *int) error {
		require.Equal(t, i, *p)
		seen = append(seen, i)
		return nil
	}))
	require.Len(t, seen, 39)
	require.NotContains(t, seen, 3)

	stop := errors.New("stop")
	n := 0
	err := s.ForAll(func(int, *int) error {
		n++
		if n == 5 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 5, n)

	slots, used := 0, 0
	require.NoError(t, s.ForEach(func(_ int, _ *int, u bool) error {
		slots++
		if u {
			used++
		}
		return nil
	}))
	require.Equal(t, 64, slots)
	require.Equal(t, 39, used)
}

func Test_Set_Linear(t *testing.T) {
	s := New[int](WithSlabSize(32))
	for i := range 50 {
		*s.Get() = i * 2
	}
	s.DeleteIndex(0)
	s.DeleteIndex(49)

	lin := s.Linear()
	require.Len(t, lin, 48)
	require.Equal(t, 2, lin[0])
	require.Equal(t, 96, lin[47])

	// The copy is independent of the pool.
	lin[0] = -1
	require.Equal(t, 2, *s.UsedMember(1))
}

func Test_Set_MaxSlabs(t *testing.T) {
	s := New[int](WithSlabSize(32), WithMaxSlabs(2))
	for range 64 {
		require.NotNil(t, s.Get())
	}
	require.Nil(t, s.Get())
	require.Nil(t, s.Member(64))
	require.True(t, s.DeleteIndex(40))
	require.NotNil(t, s.Get())
}

func Test_Set_Destroy(t *testing.T) {
	s := New[record](WithSlabSize(32))
	p := s.Get()
	for range 70 {
		s.Get()
	}
	s.Destroy()
	require.Zero(t, s.Count())
	require.Zero(t, s.Slabs())
	require.False(t, s.Valid(p))

	require.NotNil(t, s.Get())
	require.Equal(t, 1, s.Slabs())
}

// Test_Set_RandomOps_Invariants checks count, validity and slab growth
// against a model under random Get/Delete.
func Test_Set_RandomOps_Invariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New[int](WithSlabSize(32))
	live := map[*int]int{}
	maxLive := 0

	for step := range 3000 {
		if len(live) > 0 && rng.Intn(5) < 2 {
			for p := range live {
				require.True(t, s.Delete(p), "step %d", step)
				delete(live, p)
				break
			}
		} else {
			p := s.Get()
			require.NotNil(t, p)
			require.Zero(t, *p, "step %d: fresh element is zeroed", step)
			*p = step + 1
			require.NotContains(t, live, p)
			live[p] = step + 1
		}
		maxLive = max(maxLive, len(live))

		require.Equal(t, len(live), s.Count(), "step %d", step)
		require.LessOrEqual(t, s.Slabs(), (maxLive+31)/32, "step %d", step)
	}
	for p, v := range live {
		require.True(t, s.Valid(p))
		require.Equal(t, v, *p)
		require.Same(t, p, s.UsedMember(s.Index(p)))
	}
}

func Test_Nested_Bounds(t *testing.T) {
	n, err := NewNested[int](2, 1, WithSlabSize(32))
	require.NoError(t, err)
	require.Equal(t, 32, n.InnerCap())

	seen := map[int]bool{}
	for range 64 {
		p, i, err := n.Get()
		require.NoError(t, err)
		*p = i
		require.False(t, seen[i])
		seen[i] = true
	}
	require.Equal(t, 2, n.Sets())
	require.Equal(t, 64, n.Count())

	_, _, err = n.Get()
	require.ErrorIs(t, err, ErrFull)
	require.ErrorIs(t, err, types.ErrOutOfMemory)

	p := n.UsedMember(40)
	require.NotNil(t, p)
	require.Equal(t, 40, *p)
	require.Equal(t, 40, n.Index(p))
	require.True(t, n.Valid(p))
	require.True(t, n.Delete(p))
	require.False(t, n.Valid(p))

	q, i, err := n.Get()
	require.NoError(t, err)
	require.Same(t, p, q)
	require.Equal(t, 40, i)

	require.True(t, n.DeleteIndex(0))
	count := 0
	require.NoError(t, n.ForAll(func(i int, p *int) error {
		count++
		return nil
	}))
	require.Equal(t, 63, count)

	n.Destroy()
	require.Zero(t, n.Count())
	require.Zero(t, n.Sets())
}

func Test_Nested_Member(t *testing.T) {
	n, err := NewNested[string](3, 1, WithSlabSize(32))
	require.NoError(t, err)

	p := n.Member(70)
	require.NotNil(t, p)
	require.Equal(t, 3, n.Sets())
	require.Equal(t, 70, n.Index(p))
	require.Nil(t, n.Member(96))
	require.Nil(t, n.UsedMember(5))

	_, err = NewNested[int](0, 1)
	require.ErrorIs(t, err, types.ErrInvalid)
}

func Test_Set_RejectsZeroSizeElements(t *testing.T) {
	require.PanicsWithValue(t, "set: element type struct {} has zero size", func() {
		New[struct{}]()
	})
	require.NotPanics(t, func() { New[[1]byte]() })

	_, err := NewNested[struct{}](2, 1)
	require.ErrorIs(t, err, types.ErrInvalid)
}
