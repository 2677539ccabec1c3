package bintree

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// Dump writes the tree sideways, greatest key first, one entry per line
// indented by depth.
func (t *Tree[K, V]) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	type item struct {
		n     *node[K, V]
		depth int
	}
	// Reverse in-order: right, node, left.
	var stack []item
	n, depth := t.root, 0
	for n != nil || len(stack) > 0 {
		for n != nil {
			stack = append(stack, item{n, depth})
			n, depth = n.right, depth+1
		}
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, err := fmt.Fprintf(bw, "%s%v: %v\n", strings.Repeat("    ", it.depth), it.n.key, it.n.val); err != nil {
			return err
		}
		n, depth = it.n.left, it.depth+1
	}
	return bw.Flush()
}

// A Caser keeps state between calls, so each comparison borrows one.
var folders = sync.Pool{
	New: func() any {
		c := cases.Fold()
		return &c
	},
}

// FoldCompare orders strings case-insensitively using Unicode case folding.
// Use it with NewFunc or NewFold. It is safe for concurrent use.
func FoldCompare(old, key string) int {
	c := folders.Get().(*cases.Caser)
	r := strings.Compare(c.String(key), c.String(old))
	folders.Put(c)
	return r
}

// NewFold returns a string-keyed tree ordered by FoldCompare.
func NewFold[V any](opts ...Option) *Tree[string, V] {
	return NewFunc[string, V](FoldCompare, opts...)
}
