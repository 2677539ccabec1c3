package bintree

import "math/bits"

// Balance rebuilds the tree to minimal height with the Day-Stout-Warren
// rotation pass: the tree is first flattened into a right-leaning vine, then
// folded with left rotations. Node identity and in-order sequence are kept.
func (t *Tree[K, V]) Balance() {
	if t.root == nil {
		return
	}
	pseudo := &node[K, V]{right: t.root}
	n := toVine(pseudo)
	// Leaves of the deepest complete level.
	m := 1<<(bits.Len(uint(n+1))-1) - 1
	compress(pseudo, n-m)
	for m > 1 {
		m /= 2
		compress(pseudo, m)
	}
	t.root = pseudo.right
	fixSizes(t.root)
	t.mutated()
}

// toVine rotates right until no node has a left child and returns the node
// count.
func toVine[K, V any](root *node[K, V]) int {
	tail, rest, n := root, root.right, 0
	for rest != nil {
		if rest.left == nil {
			tail, rest = rest, rest.right
			n++
			continue
		}
		l := rest.left
		rest.left = l.right
		l.right = rest
		rest = l
		tail.right = l
	}
	return n
}

// compress performs count left rotations along the vine.
func compress[K, V any](root *node[K, V], count int) {
	scanner := root
	for range count {
		child := scanner.right
		scanner.right = child.right
		scanner = scanner.right
		child.right = scanner.left
		scanner.left = child
	}
}

// fixSizes recomputes subtree sizes bottom-up. It recurses, which is bounded
// by the balanced height.
func fixSizes[K, V any](n *node[K, V]) int {
	if n == nil {
		return 0
	}
	n.size = 1 + fixSizes(n.left) + fixSizes(n.right)
	return n.size
}
