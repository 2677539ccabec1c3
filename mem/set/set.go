// Package set implements the generic set: a pool of fixed-size elements kept
// in slabs, each slab tracking its used slots in a bitmask.
//
// Elements never move: a pointer returned by Get stays valid until the
// element is deleted or the set is destroyed. Slabs are chained with the
// intrusive link engine and are only reclaimed by Destroy. Every element has
// a linear index across the whole chain.
//
// A Set is not synchronized; callers serialize mutators. Read-only methods
// may run concurrently with each other.
package set

import (
	"fmt"
	"math/bits"
	"unsafe"

	"github.com/joshuapare/memkit/mem/link"
)

const (
	// DefaultSlabSize is the number of elements per slab.
	DefaultSlabSize = 256

	// InvalidIndex is returned by Index for pointers outside the set.
	InvalidIndex = -1

	wordBits = 32
)

// Option configures a Set or Nested.
type Option func(*config)

type config struct {
	slabSize int
	maxSlabs int
}

// WithSlabSize sets the elements per slab, rounded up to a multiple of 32.
func WithSlabSize(n int) Option {
	return func(c *config) {
		if n <= 0 {
			n = DefaultSlabSize
		}
		c.slabSize = (n + wordBits - 1) / wordBits * wordBits
	}
}

// WithMaxSlabs caps the number of slabs; Get returns nil once they are all
// full. Zero means unbounded.
func WithMaxSlabs(n int) Option {
	return func(c *config) { c.maxSlabs = max(n, 0) }
}

func newConfig(opts []Option) config {
	c := config{slabSize: DefaultSlabSize}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type slab[T any] struct {
	link.Links[slab[T]]

	base  int // linear index of elems[0]
	elems []T
	used  []uint32
	count int
	bias  int // word likely to hold a clear bit
}

func newSlab[T any](base, n int) *slab[T] {
	return &slab[T]{
		base:  base,
		elems: make([]T, n),
		used:  make([]uint32, n/wordBits),
	}
}

func (sl *slab[T]) full() bool { return sl.count == len(sl.elems) }

func (sl *slab[T]) isSet(i int) bool { return sl.used[i/wordBits]&(1<<(i%wordBits)) != 0 }

func (sl *slab[T]) mark(i int) {
	sl.used[i/wordBits] |= 1 << (i % wordBits)
	sl.count++
}

func (sl *slab[T]) unmark(i int) {
	sl.used[i/wordBits] &^= 1 << (i % wordBits)
	sl.count--
	var zero T
	sl.elems[i] = zero
	sl.bias = min(sl.bias, i/wordBits)
}

// firstFree returns the lowest clear bit at or after the bias word, wrapping
// around, or -1 when the slab is full.
func (sl *slab[T]) firstFree() int {
	words := len(sl.used)
	for k := range words {
		w := (sl.bias + k) % words
		if free := ^sl.used[w]; free != 0 {
			sl.bias = w
			return w*wordBits + bits.TrailingZeros32(free)
		}
	}
	return -1
}

// slot returns the element index of p within the slab, or -1.
func (sl *slab[T]) slot(p *T) int {
	size := unsafe.Sizeof(*p)
	if size == 0 || len(sl.elems) == 0 {
		return -1
	}
	lo := uintptr(unsafe.Pointer(unsafe.SliceData(sl.elems)))
	addr := uintptr(unsafe.Pointer(p))
	if addr < lo || addr >= lo+size*uintptr(len(sl.elems)) || (addr-lo)%size != 0 {
		return -1
	}
	return int((addr - lo) / size)
}

// Set is a slab pool of T.
type Set[T any] struct {
	head  *slab[T]
	slabs int
	count int
	hint  *slab[T] // slab most likely to have room
	cfg   config
}

// New returns an empty set. Elements are identified by address, so T must
// not be zero-sized; New panics for such a T.
func New[T any](opts ...Option) *Set[T] {
	var zero T
	if unsafe.Sizeof(zero) == 0 {
		panic(fmt.Sprintf("set: element type %T has zero size", zero))
	}
	return &Set[T]{cfg: newConfig(opts)}
}

// SlabSize returns the number of elements per slab.
func (s *Set[T]) SlabSize() int { return s.cfg.slabSize }

// Get returns a zeroed unused element, marking it used. A new slab is
// chained when every slab is full; with WithMaxSlabs reached, Get returns nil.
func (s *Set[T]) Get() *T {
	p, _ := s.get()
	return p
}

func (s *Set[T]) get() (*T, int) {
	start := s.hint
	if start == nil {
		start = s.head
	}
	for sl := start; sl != nil; sl = link.Next(sl) {
		if !sl.full() {
			return s.take(sl)
		}
	}
	for sl := s.head; sl != start; sl = link.Next(sl) {
		if !sl.full() {
			return s.take(sl)
		}
	}
	sl := s.grow()
	if sl == nil {
		return nil, InvalidIndex
	}
	return s.take(sl)
}

func (s *Set[T]) take(sl *slab[T]) (*T, int) {
	i := sl.firstFree()
	sl.mark(i)
	s.count++
	s.hint = sl
	return &sl.elems[i], sl.base + i
}

// grow chains a new slab at the tail, or returns nil at the slab limit.
func (s *Set[T]) grow() *slab[T] {
	if s.cfg.maxSlabs > 0 && s.slabs >= s.cfg.maxSlabs {
		return nil
	}
	sl := newSlab[T](s.slabs*s.cfg.slabSize, s.cfg.slabSize)
	_ = link.LinkLast(&s.head, sl) // fresh slab, never linked
	s.slabs++
	return sl
}

// find returns the slab and slot holding p.
func (s *Set[T]) find(p *T) (*slab[T], int) {
	if p == nil {
		return nil, -1
	}
	for sl := s.head; sl != nil; sl = link.Next(sl) {
		if i := sl.slot(p); i >= 0 {
			return sl, i
		}
	}
	return nil, -1
}

// slabAt returns the slab holding linear index i, chaining new slabs when
// create is set.
func (s *Set[T]) slabAt(i int, create bool) *slab[T] {
	if i < 0 {
		return nil
	}
	want := i / s.cfg.slabSize
	sl := s.head
	for n := 0; ; n++ {
		if sl == nil {
			if !create {
				return nil
			}
			if sl = s.grow(); sl == nil {
				return nil
			}
		}
		if n == want {
			return sl
		}
		sl = link.Next(sl)
	}
}

// Delete returns the element p points at to the pool. The slot is zeroed.
// It reports false if p is not a used element of the set.
func (s *Set[T]) Delete(p *T) bool {
	sl, i := s.find(p)
	if sl == nil || !sl.isSet(i) {
		return false
	}
	sl.unmark(i)
	s.count--
	s.hint = sl
	return true
}

// DeleteIndex deletes the element at linear index i.
func (s *Set[T]) DeleteIndex(i int) bool {
	sl := s.slabAt(i, false)
	if sl == nil || !sl.isSet(i-sl.base) {
		return false
	}
	sl.unmark(i - sl.base)
	s.count--
	s.hint = sl
	return true
}

// Member returns the element at linear index i, chaining slabs up to it if
// needed and marking it used. It returns nil for a negative index or one
// beyond the slab limit.
func (s *Set[T]) Member(i int) *T {
	sl := s.slabAt(i, true)
	if sl == nil {
		return nil
	}
	j := i - sl.base
	if !sl.isSet(j) {
		sl.mark(j)
		s.count++
	}
	return &sl.elems[j]
}

// UsedMember returns the element at linear index i, or nil if it is unused.
func (s *Set[T]) UsedMember(i int) *T {
	sl := s.slabAt(i, false)
	if sl == nil || !sl.isSet(i-sl.base) {
		return nil
	}
	return &sl.elems[i-sl.base]
}

// Index returns the linear index of p, or InvalidIndex if p does not point
// into the set. Unused slots have an index too.
func (s *Set[T]) Index(p *T) int {
	sl, i := s.find(p)
	if sl == nil {
		return InvalidIndex
	}
	return sl.base + i
}

// Valid reports whether p points at a used element of the set.
func (s *Set[T]) Valid(p *T) bool {
	sl, i := s.find(p)
	return sl != nil && sl.isSet(i)
}

// Count returns the number of used elements.
func (s *Set[T]) Count() int { return s.count }

// Slabs returns the number of slabs.
func (s *Set[T]) Slabs() int { return s.slabs }

// Cap returns the number of elements the current slabs hold.
func (s *Set[T]) Cap() int { return s.slabs * s.cfg.slabSize }

// ForAll calls fn for every used element in index order. The first non-nil
// error stops the iteration and is returned.
func (s *Set[T]) ForAll(fn func(i int, p *T) error) error {
	for sl := s.head; sl != nil; sl = link.Next(sl) {
		if sl.count == 0 {
			continue
		}
		for w, word := range sl.used {
			for word != 0 {
				b := bits.TrailingZeros32(word)
				word &^= 1 << b
				j := w*wordBits + b
				if err := fn(sl.base+j, &sl.elems[j]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ForEach calls fn for every slot, used or not, in index order. The first
// non-nil error stops the iteration and is returned.
func (s *Set[T]) ForEach(fn func(i int, p *T, used bool) error) error {
	for sl := s.head; sl != nil; sl = link.Next(sl) {
		for j := range sl.elems {
			if err := fn(sl.base+j, &sl.elems[j], sl.isSet(j)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Linear returns a copy of every used element in index order.
// The slice belongs to the caller.
func (s *Set[T]) Linear() []T {
	out := make([]T, 0, s.count)
	_ = s.ForAll(func(_ int, p *T) error {
		out = append(out, *p)
		return nil
	})
	return out
}

// Destroy drops every slab. The set is empty and reusable afterwards.
func (s *Set[T]) Destroy() {
	for s.head != nil {
		sl := s.head
		link.Unlink(sl)
		clear(sl.elems)
	}
	s.slabs, s.count, s.hint = 0, 0, nil
}

// full reports whether Get would fail.
func (s *Set[T]) full() bool {
	return s.cfg.maxSlabs > 0 && s.slabs >= s.cfg.maxSlabs && s.count == s.Cap()
}
