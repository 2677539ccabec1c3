package bintree

import (
	"bytes"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/pkg/types"
)

func build(keys ...int) *Tree[int, string] {
	t := New[int, string]()
	for _, k := range keys {
		t.Add(k, "")
	}
	return t
}

// walk returns keys from Least through repeated Greater.
func walk(c interface {
	Least() (Entry[int, string], bool)
	Greater() (Entry[int, string], bool)
}) []int {
	var out []int
	for e, ok := c.Least(); ok; e, ok = c.Greater() {
		out = append(out, e.Key)
	}
	return out
}

func Test_Tree_Scenario(t *testing.T) {
	tr := build(5, 3, 8, 1, 4)
	e, ok := tr.Least()
	require.True(t, ok)
	require.Equal(t, 1, e.Key)
	for _, want := range []int{3, 4, 5, 8} {
		e, ok = tr.Greater()
		require.True(t, ok)
		require.Equal(t, want, e.Key)
	}
	_, ok = tr.Greater()
	require.False(t, ok)
	_, ok = tr.Current()
	require.False(t, ok, "walking past the end unpositions the cursor")
}

func Test_Tree_OrderingLaw(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{0, 1, 2, 17, 500} {
		tr := New[int, string]()
		var keys []int
		for range n {
			k := rng.Intn(50) // plenty of duplicates
			keys = append(keys, k)
			require.True(t, tr.Add(k, ""))
		}
		got := walk(tr)
		require.Len(t, got, tr.Count())
		require.True(t, slices.IsSorted(got), "n=%d", n)
		slices.Sort(keys)
		if n == 0 {
			require.Empty(t, got)
			continue
		}
		require.Equal(t, keys, got)
	}
}

func Test_Tree_LesserFromGreatest(t *testing.T) {
	tr := build(5, 3, 8, 1, 4, 7, 9)
	var got []int
	for e, ok := tr.Greatest(); ok; e, ok = tr.Lesser() {
		got = append(got, e.Key)
	}
	require.Equal(t, []int{9, 8, 7, 5, 4, 3, 1}, got)
}

func Test_Tree_DuplicatesGoToSmallerSide(t *testing.T) {
	tr := build(5, 3)
	// Left has one descendant, right none.
	require.True(t, tr.Add(5, "dup"))
	require.Nil(t, tr.root.left.right)
	require.NotNil(t, tr.root.right)
	require.Equal(t, 5, tr.root.right.key)
	require.Equal(t, 3, tr.root.size)

	nd := New[int, string](WithNoDuplicates())
	require.True(t, nd.Add(1, "a"))
	require.False(t, nd.Add(1, "b"))
	err := nd.Insert(1, "c")
	require.ErrorIs(t, err, ErrDuplicate)
	require.ErrorIs(t, err, types.ErrDuplicate)
	require.Equal(t, 1, nd.Count())
	v, _ := nd.Find(1)
	require.Equal(t, "a", v)
}

func Test_Tree_DuplicateHeavyStaysShallow(t *testing.T) {
	tr := New[int, int]()
	for i := range 1023 {
		tr.Add(7, i)
	}
	require.Equal(t, 1023, tr.Count())
	require.LessOrEqual(t, tr.Height(), 20)
}

func Test_Tree_FindAndLocate(t *testing.T) {
	tr := New[int, string]()
	for _, k := range []int{50, 30, 70, 20, 40, 60, 80} {
		tr.Add(k, strings.Repeat("x", k/10))
	}

	v, ok := tr.Find(40)
	require.True(t, ok)
	require.Equal(t, "xxxx", v)
	cur, ok := tr.Current()
	require.True(t, ok)
	require.Equal(t, 40, cur.Key, "find positions the default cursor")
	next, _ := tr.Greater()
	require.Equal(t, 50, next.Key)

	_, ok = tr.Find(45)
	require.False(t, ok)

	e, m := tr.Locate(60, nil)
	require.Equal(t, MatchExact, m)
	require.Equal(t, 60, e.Key)

	e, m = tr.Locate(45, nil)
	require.Equal(t, MissGreater, m)
	require.Equal(t, 40, e.Key)
	require.False(t, m.Found())
	cur, ok = tr.Current()
	require.True(t, ok, "a miss leaves the cursor on the nearest entry")
	require.Equal(t, 40, cur.Key)
	next, ok = tr.Greater()
	require.True(t, ok)
	require.Equal(t, 50, next.Key, "first entry above 45")
	require.False(t, tr.RemoveLastFound(), "a miss is not a found entry")
	require.Equal(t, 7, tr.Count())

	e, m = tr.Locate(55, nil)
	require.Equal(t, MissLess, m)
	require.Equal(t, 60, e.Key)
	prev, ok := tr.Lesser()
	require.True(t, ok)
	require.Equal(t, 50, prev.Key, "first entry below 55")

	c := tr.NewCursor()
	_, _ = tr.Locate(85, nil)
	_, ok = c.Current()
	require.False(t, ok, "only the default cursor follows Locate")
	last, ok := tr.Current()
	require.True(t, ok)
	require.Equal(t, 80, last.Key)
	_, ok = tr.Greater()
	require.False(t, ok, "nothing above 85")

	// Accept anything within 5 of a node.
	near := func(node, key int) int {
		switch d := key - node; {
		case d == 0:
			return 0
		case d > -5 && d < 5:
			return int(MatchApprox)
		default:
			return d
		}
	}
	e, m = tr.Locate(78, near)
	require.Equal(t, MatchApprox, m)
	require.Equal(t, 80, e.Key)
	require.True(t, m.Found())

	_, m = New[int, string]().Locate(1, nil)
	require.Equal(t, MatchNone, m)
	assert.Equal(t, "none", m.String())
}

func Test_Tree_UnsignedKeys(t *testing.T) {
	tr := New[uint32, string]()
	tr.Add(1<<31, "high")
	tr.Add(1, "low")
	e, _ := tr.Least()
	require.Equal(t, uint32(1), e.Key)
	e, _ = tr.Greatest()
	require.Equal(t, uint32(1<<31), e.Key)
}

func Test_Tree_Remove(t *testing.T) {
	var destroyed []int
	tr := New[int, string](WithDestroy(func(_ string, k int) { destroyed = append(destroyed, k) }))
	for _, k := range []int{50, 30, 70, 20, 40, 60, 80, 65} {
		tr.Add(k, "")
	}

	require.True(t, tr.Remove(70), "two children")
	require.False(t, tr.Remove(70))
	require.True(t, tr.Remove(20), "leaf")
	require.True(t, tr.Remove(60), "one child")
	require.Equal(t, []int{70, 20, 60}, destroyed)
	require.Equal(t, []int{30, 40, 50, 65, 80}, walk(tr))
	require.Equal(t, 5, tr.Count())
	require.Equal(t, 5, tr.root.size)

	_, ok := tr.Find(40)
	require.True(t, ok)
	require.True(t, tr.RemoveLastFound())
	require.False(t, tr.RemoveLastFound(), "last found is cleared")

	tr.Least()
	tr.Greater()
	require.True(t, tr.RemoveCurrent())
	require.False(t, tr.RemoveCurrent(), "default cursor is cleared")
	require.Equal(t, []int{30, 65, 80}, walk(tr))

	require.False(t, tr.Remove(50))
	require.True(t, tr.Remove(30))
	require.True(t, tr.Remove(65))
	require.True(t, tr.Remove(80))
	require.Zero(t, tr.Count())
	require.Nil(t, tr.root)
}

func Test_Tree_RandomRemove_KeepsSizes(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	tr := New[int, int]()
	model := map[int]int{}
	for step := range 4000 {
		k := rng.Intn(200)
		if rng.Intn(3) == 0 {
			removed := tr.Remove(k)
			require.Equal(t, model[k] > 0, removed, "step %d", step)
			if removed {
				model[k]--
			}
		} else {
			tr.Add(k, step)
			model[k]++
		}
		if step%97 == 0 {
			tr.Balance()
		}
	}
	total := 0
	for _, c := range model {
		total += c
	}
	require.Equal(t, total, tr.Count())
	var check func(n *node[int, int]) int
	check = func(n *node[int, int]) int {
		if n == nil {
			return 0
		}
		s := 1 + check(n.left) + check(n.right)
		require.Equal(t, s, n.size)
		return s
	}
	check(tr.root)
	require.True(t, slices.IsSorted(walk(intTree(tr))))
}

// intTree re-keys a tree's values so walk can read it.
func intTree(src *Tree[int, int]) *Tree[int, string] {
	out := New[int, string]()
	for k := range src.All() {
		out.Add(k, "")
	}
	return out
}

func Test_Tree_Balance(t *testing.T) {
	tr := New[int, string]()
	for i := range 127 {
		tr.Add(i, "")
	}
	require.Equal(t, 127, tr.Height(), "sorted insertion degenerates")

	c := tr.NewCursor()
	c.Least()
	tr.Balance()
	require.Equal(t, 7, tr.Height())
	require.Equal(t, 127, tr.Count())
	require.Equal(t, 63, tr.root.key)

	_, ok := c.Greater()
	require.False(t, ok)
	require.ErrorIs(t, c.Err(), ErrStaleCursor)
	c.Reset()
	require.NoError(t, c.Err())
	e, ok := c.Least()
	require.True(t, ok)
	require.Equal(t, 0, e.Key)

	for _, n := range []int{1, 2, 3, 10, 100} {
		b := New[int, string]()
		for i := range n {
			b.Add(i, "")
		}
		b.Balance()
		want := 0
		for (1<<want)-1 < n {
			want++
		}
		require.Equal(t, want, b.Height(), "n=%d", n)
		require.Len(t, walk(b), n)
	}
}

func Test_Cursor_Independent(t *testing.T) {
	tr := build(5, 3, 8, 1, 4)
	a := tr.NewCursor()
	b := tr.NewCursor()
	a.Least()
	b.Greatest()
	ea, _ := a.Greater()
	eb, _ := b.Lesser()
	require.Equal(t, 3, ea.Key)
	require.Equal(t, 5, eb.Key)

	// Adding leaves does not invalidate cursors.
	tr.Add(6, "")
	eb, ok := b.Greater()
	require.True(t, ok)
	require.Equal(t, 6, eb.Key)
	require.NoError(t, b.Err())
}

func Test_Cursor_ParentChildPrior(t *testing.T) {
	tr := build(5, 3, 8, 1, 4)
	e, ok := tr.Least()
	require.True(t, ok)
	require.Equal(t, 1, e.Key)

	e, ok = tr.Parent()
	require.True(t, ok)
	require.Equal(t, 3, e.Key)
	e, ok = tr.Child(Right)
	require.True(t, ok)
	require.Equal(t, 4, e.Key)
	_, ok = tr.Child(Left)
	require.False(t, ok)
	e, _ = tr.Current()
	require.Equal(t, 4, e.Key, "failed child move keeps position")

	e, ok = tr.Prior()
	require.True(t, ok)
	require.Equal(t, 3, e.Key)
	e, _ = tr.Prior()
	require.Equal(t, 4, e.Key, "prior is a one-level toggle")

	tr.Parent()
	tr.Parent()
	_, ok = tr.Parent()
	require.False(t, ok, "root has no parent")
	e, _ = tr.Current()
	require.Equal(t, 5, e.Key)

	c := tr.NewCursor()
	_, ok = c.Greater()
	require.False(t, ok, "unpositioned cursor")
	require.Zero(t, c.Depth())
}

func Test_Tree_ResetAndShadow(t *testing.T) {
	var destroyed []int
	tr := New[int, *int](WithDestroy(func(_ *int, k int) { destroyed = append(destroyed, k) }))
	vals := map[int]*int{}
	for _, k := range []int{2, 1, 3} {
		v := k * 10
		vals[k] = &v
		tr.Add(k, &v)
	}

	sh := tr.Shadow()
	require.Equal(t, 3, sh.Count())
	v, _ := sh.Find(2)
	require.Same(t, vals[2], v, "shadow shares values")

	sh.Remove(1)
	require.Equal(t, 3, tr.Count(), "topology is independent")
	sh.Reset()
	require.Empty(t, destroyed, "shadow carries no destroy callback")

	tr.Reset()
	slices.Sort(destroyed)
	require.Equal(t, []int{1, 2, 3}, destroyed)
	require.Zero(t, tr.Count())
	require.Zero(t, tr.Height())
}

func Test_Tree_DumpAndAll(t *testing.T) {
	tr := build(5, 3, 8)
	var buf bytes.Buffer
	require.NoError(t, tr.Dump(&buf))
	require.Equal(t, "    8: \n5: \n    3: \n", buf.String())

	var keys []int
	for k := range tr.All() {
		if k == 8 {
			break
		}
		keys = append(keys, k)
	}
	require.Equal(t, []int{3, 5}, keys)
}

func Test_Tree_FoldCompare(t *testing.T) {
	tr := NewFold[int](WithNoDuplicates())
	require.True(t, tr.Add("Hello", 1))
	require.False(t, tr.Add("HELLO", 2))
	require.True(t, tr.Add("straße", 3))
	v, ok := tr.Find("STRASSE")
	require.True(t, ok)
	require.Equal(t, 3, v)

	assert.Negative(t, FoldCompare("b", "A"))
	assert.Zero(t, FoldCompare("Go", "gO"))
}

func Test_Tree_DestroyTypeMismatchPanics(t *testing.T) {
	require.Panics(t, func() {
		New[int, string](WithDestroy(func(int, int) {}))
	})
}

func Test_Tree_FoldCompareConcurrent(t *testing.T) {
	words := []string{"Alpha", "beta", "GAMMA", "delta", "epsilon"}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				for i, w := range words {
					if c := FoldCompare(w, strings.ToUpper(w)); c != 0 {
						t.Errorf("fold %q: got %d", w, c)
						return
					}
					if i > 0 && FoldCompare(words[i-1], w) == 0 {
						t.Errorf("fold %q == %q", words[i-1], w)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func Benchmark_Tree_FoldFind(b *testing.B) {
	tr := NewFold[int]()
	for i := range 1024 {
		tr.Add(fmt.Sprintf("Key-%04d", i), i)
	}
	tr.Balance()

	b.ResetTimer()
	b.ReportAllocs()

	for i := range b.N {
		if _, ok := tr.Find(fmt.Sprintf("KEY-%04d", i%1024)); !ok {
			b.Fatal("missing key")
		}
	}
}
