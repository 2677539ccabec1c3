// Package bintree implements an unbalanced binary search tree with explicit
// rebalancing, cursor traversal and fuzzy lookup.
//
// Insertion never rotates; call Balance after skewed insertion orders.
// Duplicate keys are allowed unless WithNoDuplicates is given; a duplicate is
// placed on the side of the matching node with fewer descendants.
//
// Every tree carries one default cursor (Least, Greater, ...). Independent
// traversals use NewCursor. Remove and Balance invalidate every cursor made
// by NewCursor; the default cursor is cleared instead.
//
// A Tree is not synchronized. Read-only methods and cursors created by
// NewCursor may run concurrently only while no mutator runs.
package bintree

import (
	"cmp"
	"fmt"
	"iter"

	"github.com/joshuapare/memkit/pkg/types"
)

var (
	// ErrStaleCursor indicates a cursor used after Remove or Balance.
	ErrStaleCursor = &types.Error{Kind: types.ErrKindMisuse, Msg: "bintree: stale cursor"}

	// ErrDuplicate indicates an insertion rejected by WithNoDuplicates.
	ErrDuplicate = &types.Error{Kind: types.ErrKindDuplicate, Msg: "bintree: duplicate key"}
)

// CompareFunc orders keys. It returns <0 if new sorts before old, 0 if they
// are equal and >0 if new sorts after old.
type CompareFunc[K any] func(old, new K) int

// FuzzyFunc is a Locate comparator. It returns 0 for an exact match,
// MatchApprox to accept node as an approximate match, or the CompareFunc
// direction (<0 or >0) to keep descending.
type FuzzyFunc[K any] func(node, key K) int

// Match reports how Locate resolved a key.
type Match int

const (
	// MatchExact is an exact hit.
	MatchExact Match = 0
	// MatchApprox is a node accepted by the fuzzy comparator.
	MatchApprox Match = 100
	// MissLess means the key sorts before the returned nearest entry.
	MissLess Match = -1
	// MissGreater means the key sorts after the returned nearest entry.
	MissGreater Match = 1
	// MatchNone means the tree is empty.
	MatchNone Match = -100
)

func (m Match) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchApprox:
		return "approx"
	case MissLess:
		return "miss-less"
	case MissGreater:
		return "miss-greater"
	case MatchNone:
		return "none"
	default:
		return fmt.Sprintf("match(%d)", int(m))
	}
}

// Found reports whether m identifies a matching entry.
func (m Match) Found() bool { return m == MatchExact || m == MatchApprox }

// Entry is a key and its value.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Option configures a Tree.
type Option func(*config)

type config struct {
	noDup   bool
	destroy any
}

// WithNoDuplicates rejects insertion of a key already in the tree.
func WithNoDuplicates() Option {
	return func(c *config) { c.noDup = true }
}

// WithDestroy sets a callback run for every entry the tree drops through
// Remove or Reset. Its types must match the tree's.
func WithDestroy[K, V any](fn func(val V, key K)) Option {
	return func(c *config) { c.destroy = fn }
}

type node[K, V any] struct {
	key         K
	val         V
	left, right *node[K, V]
	size        int // nodes in this subtree
}

func (n *node[K, V]) entry() Entry[K, V] { return Entry[K, V]{Key: n.key, Value: n.val} }

func sizeOf[K, V any](n *node[K, V]) int {
	if n == nil {
		return 0
	}
	return n.size
}

// Tree is a binary search tree mapping K to V.
type Tree[K, V any] struct {
	root    *node[K, V]
	cmp     CompareFunc[K]
	noDup   bool
	destroy func(V, K)

	version  uint64
	cur      *Cursor[K, V]
	lastPath []*node[K, V]
}

// New returns a tree ordered by the natural order of K.
func New[K cmp.Ordered, V any](opts ...Option) *Tree[K, V] {
	return NewFunc[K, V](func(old, key K) int { return cmp.Compare(key, old) }, opts...)
}

// NewFunc returns a tree ordered by compare.
func NewFunc[K, V any](compare CompareFunc[K], opts ...Option) *Tree[K, V] {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	t := &Tree[K, V]{cmp: compare, noDup: c.noDup}
	if c.destroy != nil {
		fn, ok := c.destroy.(func(V, K))
		if !ok {
			panic(fmt.Sprintf("bintree: destroy callback %T does not match tree entries", c.destroy))
		}
		t.destroy = fn
	}
	t.cur = t.NewCursor()
	return t
}

// Count returns the number of entries.
func (t *Tree[K, V]) Count() int { return sizeOf(t.root) }

// Height returns the number of nodes on the longest root-to-leaf path.
func (t *Tree[K, V]) Height() int {
	type item struct {
		n     *node[K, V]
		depth int
	}
	h := 0
	stack := []item{}
	if t.root != nil {
		stack = append(stack, item{t.root, 1})
	}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		h = max(h, it.depth)
		if it.n.left != nil {
			stack = append(stack, item{it.n.left, it.depth + 1})
		}
		if it.n.right != nil {
			stack = append(stack, item{it.n.right, it.depth + 1})
		}
	}
	return h
}

// Add inserts key with val. It returns false only when the tree rejects
// duplicates and key is present.
func (t *Tree[K, V]) Add(key K, val V) bool {
	n := &node[K, V]{key: key, val: val, size: 1}
	if t.root == nil {
		t.root = n
		return true
	}
	var path []*node[K, V]
	p := t.root
	for {
		path = append(path, p)
		c := t.cmp(p.key, key)
		if c == 0 {
			if t.noDup {
				return false
			}
			c = 1
			if sizeOf(p.left) <= sizeOf(p.right) {
				c = -1
			}
		}
		slot := &p.right
		if c < 0 {
			slot = &p.left
		}
		if *slot == nil {
			*slot = n
			break
		}
		p = *slot
	}
	for _, a := range path {
		a.size++
	}
	return true
}

// Insert is Add reporting a rejected duplicate as ErrDuplicate.
func (t *Tree[K, V]) Insert(key K, val V) error {
	if !t.Add(key, val) {
		return fmt.Errorf("%w: %v", ErrDuplicate, key)
	}
	return nil
}

// search returns the root-to-node path of the first node matching key, or
// nil.
func (t *Tree[K, V]) search(key K) []*node[K, V] {
	var path []*node[K, V]
	for n := t.root; n != nil; {
		path = append(path, n)
		c := t.cmp(n.key, key)
		switch {
		case c == 0:
			return path
		case c < 0:
			n = n.left
		default:
			n = n.right
		}
	}
	return nil
}

// Find returns the value stored under key. A hit becomes the last found
// entry and the default cursor's position.
func (t *Tree[K, V]) Find(key K) (V, bool) {
	path := t.search(key)
	if path == nil {
		var zero V
		return zero, false
	}
	t.found(path)
	return path[len(path)-1].val, true
}

func (t *Tree[K, V]) found(path []*node[K, V]) {
	t.lastPath = path
	t.cur.seek(path)
}

func (t *Tree[K, V]) missed(path []*node[K, V]) {
	t.lastPath = nil
	t.cur.seek(path)
}

// Locate descends by fuzzy (the tree's order when nil). On a match it
// returns the entry with MatchExact or MatchApprox, which also becomes the
// last found entry and the default cursor's position. On a miss it returns
// the last node visited with the direction the key lies in from it and
// leaves the default cursor there, so nearest-neighbour and range queries
// continue with Greater or Lesser. A miss clears the last found entry.
func (t *Tree[K, V]) Locate(key K, fuzzy FuzzyFunc[K]) (Entry[K, V], Match) {
	if fuzzy == nil {
		fuzzy = FuzzyFunc[K](t.cmp)
	}
	if t.root == nil {
		return Entry[K, V]{}, MatchNone
	}
	var path []*node[K, V]
	n := t.root
	for {
		path = append(path, n)
		r := fuzzy(n.key, key)
		switch {
		case r == 0:
			t.found(path)
			return n.entry(), MatchExact
		case r == int(MatchApprox):
			t.found(path)
			return n.entry(), MatchApprox
		case r < 0:
			if n.left == nil {
				t.missed(path)
				return n.entry(), MissLess
			}
			n = n.left
		default:
			if n.right == nil {
				t.missed(path)
				return n.entry(), MissGreater
			}
			n = n.right
		}
	}
}

// Remove drops the first node found for key.
func (t *Tree[K, V]) Remove(key K) bool {
	path := t.search(key)
	if path == nil {
		return false
	}
	t.removePath(path)
	return true
}

// RemoveLastFound drops the entry most recently matched by Find or Locate.
func (t *Tree[K, V]) RemoveLastFound() bool {
	if t.lastPath == nil {
		return false
	}
	t.removePath(t.lastPath)
	return true
}

// RemoveCurrent drops the default cursor's entry.
func (t *Tree[K, V]) RemoveCurrent() bool {
	if len(t.cur.stack) == 0 {
		return false
	}
	t.removePath(append([]*node[K, V](nil), t.cur.stack...))
	return true
}

// removePath unlinks the last node of a root-to-node path.
func (t *Tree[K, V]) removePath(path []*node[K, V]) {
	n := path[len(path)-1]
	slot := &t.root
	if len(path) > 1 {
		parent := path[len(path)-2]
		if parent.left == n {
			slot = &parent.left
		} else {
			slot = &parent.right
		}
	}
	for _, a := range path[:len(path)-1] {
		a.size--
	}
	unlinkNode(slot)
	t.mutated()
	if t.destroy != nil {
		t.destroy(n.val, n.key)
	}
}

// unlinkNode removes *slot, promoting its in-order successor when it has
// two children.
func unlinkNode[K, V any](slot **node[K, V]) {
	n := *slot
	switch {
	case n.left == nil:
		*slot = n.right
	case n.right == nil:
		*slot = n.left
	default:
		sp := &n.right
		for (*sp).left != nil {
			(*sp).size--
			sp = &(*sp).left
		}
		s := *sp
		*sp = s.right
		s.left, s.right = n.left, n.right
		s.size = n.size - 1
		*slot = s
	}
	n.left, n.right = nil, nil
}

// mutated invalidates cursors after a structural change.
func (t *Tree[K, V]) mutated() {
	t.version++
	t.lastPath = nil
	t.cur.Reset()
}

// Reset drops every entry, running the destroy callback for each.
func (t *Tree[K, V]) Reset() {
	root := t.root
	t.root = nil
	t.mutated()
	if root == nil {
		return
	}
	stack := []*node[K, V]{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.left != nil {
			stack = append(stack, n.left)
		}
		if n.right != nil {
			stack = append(stack, n.right)
		}
		if t.destroy != nil {
			t.destroy(n.val, n.key)
		}
		n.left, n.right = nil, nil
	}
}

// Shadow returns a tree with a copy of this tree's topology whose entries
// hold the same keys and values. The two trees change independently
// afterwards. The shadow has no destroy callback, so resetting it never
// releases values the original still refers to.
func (t *Tree[K, V]) Shadow() *Tree[K, V] {
	s := &Tree[K, V]{cmp: t.cmp, noDup: t.noDup, root: cloneNodes(t.root)}
	s.cur = s.NewCursor()
	return s
}

func cloneNodes[K, V any](n *node[K, V]) *node[K, V] {
	if n == nil {
		return nil
	}
	return &node[K, V]{
		key:   n.key,
		val:   n.val,
		size:  n.size,
		left:  cloneNodes(n.left),
		right: cloneNodes(n.right),
	}
}

// All yields every entry in order.
func (t *Tree[K, V]) All() iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		var stack []*node[K, V]
		n := t.root
		for n != nil || len(stack) > 0 {
			for n != nil {
				stack = append(stack, n)
				n = n.left
			}
			n = stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n.key, n.val) {
				return
			}
			n = n.right
		}
	}
}
