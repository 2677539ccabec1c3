package set

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/memkit/pkg/types"
)

// ErrFull indicates a Nested pool whose every inner set is at its slab limit.
var ErrFull = &types.Error{Kind: types.ErrKindOutOfMemory, Msg: "set: pool full"}

// Nested is a pool of pools: a bounded number of inner sets, each limited to
// a fixed number of slabs. It bounds the number of top-level slab chains for
// very large registries. Linear indexes are outer*InnerCap() + inner.
type Nested[T any] struct {
	sets     []*Set[T]
	maxSets  int
	opts     []Option
	innerCap int
}

// NewNested returns a pool of at most maxSets inner sets with slabsPerSet
// slabs each. opts configure every inner set (WithMaxSlabs is overridden).
func NewNested[T any](maxSets, slabsPerSet int, opts ...Option) (*Nested[T], error) {
	if maxSets <= 0 || slabsPerSet <= 0 {
		return nil, fmt.Errorf("%w: set: nested pool needs positive bounds, got %d x %d",
			types.ErrInvalid, maxSets, slabsPerSet)
	}
	var zero T
	if unsafe.Sizeof(zero) == 0 {
		return nil, fmt.Errorf("%w: set: element type %T has zero size", types.ErrInvalid, zero)
	}
	inner := append(append([]Option(nil), opts...), WithMaxSlabs(slabsPerSet))
	cfg := newConfig(inner)
	return &Nested[T]{
		maxSets:  maxSets,
		opts:     inner,
		innerCap: cfg.slabSize * slabsPerSet,
	}, nil
}

// InnerCap returns the element capacity of one inner set.
func (n *Nested[T]) InnerCap() int { return n.innerCap }

// Sets returns the number of inner sets created so far.
func (n *Nested[T]) Sets() int { return len(n.sets) }

// Get returns an unused element and its linear index, creating an inner set
// when the existing ones are full.
func (n *Nested[T]) Get() (*T, int, error) {
	for oi, s := range n.sets {
		if s.full() {
			continue
		}
		if p, i := s.get(); p != nil {
			return p, oi*n.innerCap + i, nil
		}
	}
	if len(n.sets) >= n.maxSets {
		return nil, InvalidIndex, ErrFull
	}
	s := New[T](n.opts...)
	n.sets = append(n.sets, s)
	p, i := s.get()
	return p, (len(n.sets)-1)*n.innerCap + i, nil
}

func (n *Nested[T]) split(i int) (*Set[T], int) {
	if i < 0 {
		return nil, 0
	}
	oi := i / n.innerCap
	if oi >= len(n.sets) {
		return nil, 0
	}
	return n.sets[oi], i % n.innerCap
}

// Member returns the element at linear index i, creating inner sets and
// slabs up to it and marking it used. It returns nil beyond the bounds.
func (n *Nested[T]) Member(i int) *T {
	if i < 0 || i >= n.maxSets*n.innerCap {
		return nil
	}
	for i/n.innerCap >= len(n.sets) {
		n.sets = append(n.sets, New[T](n.opts...))
	}
	s, j := n.split(i)
	return s.Member(j)
}

// UsedMember returns the element at linear index i, or nil if it is unused.
func (n *Nested[T]) UsedMember(i int) *T {
	s, j := n.split(i)
	if s == nil {
		return nil
	}
	return s.UsedMember(j)
}

// Delete returns p to the pool.
func (n *Nested[T]) Delete(p *T) bool {
	for _, s := range n.sets {
		if s.Delete(p) {
			return true
		}
	}
	return false
}

// DeleteIndex deletes the element at linear index i.
func (n *Nested[T]) DeleteIndex(i int) bool {
	s, j := n.split(i)
	return s != nil && s.DeleteIndex(j)
}

// Index returns the linear index of p, or InvalidIndex.
func (n *Nested[T]) Index(p *T) int {
	for oi, s := range n.sets {
		if i := s.Index(p); i != InvalidIndex {
			return oi*n.innerCap + i
		}
	}
	return InvalidIndex
}

// Valid reports whether p points at a used element.
func (n *Nested[T]) Valid(p *T) bool {
	for _, s := range n.sets {
		if s.Valid(p) {
			return true
		}
	}
	return false
}

// Count returns the number of used elements.
func (n *Nested[T]) Count() int {
	total := 0
	for _, s := range n.sets {
		total += s.Count()
	}
	return total
}

// ForAll calls fn for every used element in linear index order.
func (n *Nested[T]) ForAll(fn func(i int, p *T) error) error {
	for oi, s := range n.sets {
		base := oi * n.innerCap
		err := s.ForAll(func(i int, p *T) error { return fn(base+i, p) })
		if err != nil {
			return err
		}
	}
	return nil
}

// Destroy drops every inner set.
func (n *Nested[T]) Destroy() {
	for _, s := range n.sets {
		s.Destroy()
	}
	n.sets = nil
}
