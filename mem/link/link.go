// Package link implements intrusive singly-linked lists with O(1) unlink.
//
// A node type embeds Links[T]; the embedded fields hold the next node and
// "me", the address of the slot currently pointing at the node (the list
// root or the previous node's next field). Because *me == node for every
// linked node, any node can be unlinked without knowing its list or walking
// to it.
//
//	type job struct {
//	    link.Links[job]
//	    id int
//	}
//
//	var pending, running *job
//	j := &job{id: 1}
//	_ = link.Link(&pending, j)
//	_ = link.Relink(&running, j) // move between lists without copying
//
// The package also provides List, a slot list of comparable values, and
// DataList, an order-preserving value list.
//
// Lists are not synchronized; callers serialize mutators.
package link

import (
	"fmt"

	"github.com/joshuapare/memkit/pkg/types"
)

var (
	// ErrAlreadyLinked indicates Link on a node that is still in a list.
	ErrAlreadyLinked = &types.Error{Kind: types.ErrKindMisuse, Msg: "link: node already linked"}

	// ErrBrokenLink indicates a node whose back-pointer does not point at it.
	ErrBrokenLink = &types.Error{Kind: types.ErrKindCorrupt, Msg: "link: broken back-pointer"}
)

// Links is embedded in a node type to make it linkable.
// The zero value is an unlinked node.
type Links[T any] struct {
	next *T
	me   **T
}

func (l *Links[T]) links() *Links[T] { return l }

// Node is satisfied by *T for every T that embeds Links[T].
type Node[T any] interface {
	*T
	links() *Links[T]
}

// Link pushes node at the head of the list rooted at *root.
func Link[T any, P Node[T]](root **T, node P) error {
	l := node.links()
	if l.me != nil {
		return ErrAlreadyLinked
	}
	l.next = *root
	if *root != nil {
		P(*root).links().me = &l.next
	}
	l.me = root
	*root = (*T)(node)
	return nil
}

// LinkLast appends node at the tail of the list. It walks the list and is
// the only O(n) operation here.
func LinkLast[T any, P Node[T]](root **T, node P) error {
	if node.links().me != nil {
		return ErrAlreadyLinked
	}
	slot := root
	for *slot != nil {
		slot = &P(*slot).links().next
	}
	return Link(slot, node)
}

// Unlink removes node from whatever list holds it. Unlinking a node that is
// not linked does nothing.
func Unlink[T any, P Node[T]](node P) {
	l := node.links()
	if l.me == nil {
		return
	}
	*l.me = l.next
	if l.next != nil {
		P(l.next).links().me = l.me
	}
	l.next, l.me = nil, nil
}

// Relink moves node from its current list (if any) to the head of *root.
func Relink[T any, P Node[T]](root **T, node P) error {
	Unlink(node)
	return Link(root, node)
}

// Next returns the node after node, or nil.
func Next[T any, P Node[T]](node P) *T {
	return node.links().next
}

// IsLinked reports whether node is in a list.
func IsLinked[T any, P Node[T]](node P) bool {
	return node.links().me != nil
}

// Count returns the number of nodes in the list starting at head.
func Count[T any, P Node[T]](head *T) int {
	n := 0
	for p := head; p != nil; p = P(p).links().next {
		n++
	}
	return n
}

// Each calls fn for every node from head on until fn returns false.
// fn may unlink the node it is given.
func Each[T any, P Node[T]](head *T, fn func(*T) bool) {
	for p := head; p != nil; {
		next := P(p).links().next
		if !fn(p) {
			return
		}
		p = next
	}
}

// Check verifies the back-pointer invariant for every node of the list
// rooted at *root.
func Check[T any, P Node[T]](root **T) error {
	slot := root
	for i := 0; *slot != nil; i++ {
		l := P(*slot).links()
		if l.me != slot {
			return fmt.Errorf("%w: node %d", ErrBrokenLink, i)
		}
		slot = &l.next
	}
	return nil
}
