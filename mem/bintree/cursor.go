package bintree

// Direction selects a child.
type Direction int

const (
	Left Direction = iota
	Right
)

// Cursor walks a tree holding its own ancestor stack, so any number of
// cursors can browse one tree independently. Moves report false when there
// is nowhere to go; once the tree is structurally changed by Remove, Balance
// or Reset every move reports false and Err returns ErrStaleCursor until
// Reset is called.
type Cursor[K, V any] struct {
	t       *Tree[K, V]
	stack   []*node[K, V] // root .. current
	prior   []*node[K, V]
	version uint64
	err     error
}

// NewCursor returns an unpositioned cursor over t.
func (t *Tree[K, V]) NewCursor() *Cursor[K, V] {
	return &Cursor[K, V]{t: t, version: t.version}
}

// Err returns ErrStaleCursor once the cursor has been used after a
// structural change.
func (c *Cursor[K, V]) Err() error { return c.err }

// Reset unpositions the cursor and rebinds it to the tree's current shape.
func (c *Cursor[K, V]) Reset() {
	c.stack = c.stack[:0]
	c.prior = nil
	c.version = c.t.version
	c.err = nil
}

func (c *Cursor[K, V]) ok() bool {
	if c.version != c.t.version {
		c.err = ErrStaleCursor
		return false
	}
	return true
}

func (c *Cursor[K, V]) current() *node[K, V] {
	if len(c.stack) == 0 {
		return nil
	}
	return c.stack[len(c.stack)-1]
}

// save records the position Prior returns to.
func (c *Cursor[K, V]) save() {
	c.prior = append(c.prior[:0], c.stack...)
}

func (c *Cursor[K, V]) seek(path []*node[K, V]) {
	c.save()
	c.stack = append(c.stack[:0], path...)
	c.version = c.t.version
	c.err = nil
}

func (c *Cursor[K, V]) at() (Entry[K, V], bool) {
	n := c.current()
	if n == nil {
		return Entry[K, V]{}, false
	}
	return n.entry(), true
}

// descend pushes n and then follows the left (or right) spine.
func (c *Cursor[K, V]) descend(n *node[K, V], dir Direction) {
	for n != nil {
		c.stack = append(c.stack, n)
		if dir == Left {
			n = n.left
		} else {
			n = n.right
		}
	}
}

// Current returns the entry under the cursor.
func (c *Cursor[K, V]) Current() (Entry[K, V], bool) {
	if !c.ok() {
		return Entry[K, V]{}, false
	}
	return c.at()
}

// Least moves to the smallest entry.
func (c *Cursor[K, V]) Least() (Entry[K, V], bool) {
	if !c.ok() {
		return Entry[K, V]{}, false
	}
	c.save()
	c.stack = c.stack[:0]
	c.descend(c.t.root, Left)
	return c.at()
}

// Greatest moves to the largest entry.
func (c *Cursor[K, V]) Greatest() (Entry[K, V], bool) {
	if !c.ok() {
		return Entry[K, V]{}, false
	}
	c.save()
	c.stack = c.stack[:0]
	c.descend(c.t.root, Right)
	return c.at()
}

// Greater moves to the in-order successor. Past the last entry the cursor
// becomes unpositioned.
func (c *Cursor[K, V]) Greater() (Entry[K, V], bool) {
	return c.step(Right)
}

// Lesser moves to the in-order predecessor. Past the first entry the cursor
// becomes unpositioned.
func (c *Cursor[K, V]) Lesser() (Entry[K, V], bool) {
	return c.step(Left)
}

func (c *Cursor[K, V]) step(dir Direction) (Entry[K, V], bool) {
	if !c.ok() {
		return Entry[K, V]{}, false
	}
	n := c.current()
	if n == nil {
		return Entry[K, V]{}, false
	}
	c.save()
	if child := pick(n, dir); child != nil {
		c.descend(child, 1-dir)
		return c.at()
	}
	// Climb until we leave a subtree on the side opposite dir.
	for len(c.stack) > 1 {
		child := c.stack[len(c.stack)-1]
		c.stack = c.stack[:len(c.stack)-1]
		if pick(c.current(), 1-dir) == child {
			return c.at()
		}
	}
	c.stack = c.stack[:0]
	return Entry[K, V]{}, false
}

func pick[K, V any](n *node[K, V], dir Direction) *node[K, V] {
	if dir == Left {
		return n.left
	}
	return n.right
}

// Parent moves to the parent of the current entry. At the root the cursor
// does not move.
func (c *Cursor[K, V]) Parent() (Entry[K, V], bool) {
	if !c.ok() || len(c.stack) < 2 {
		return Entry[K, V]{}, false
	}
	c.save()
	c.stack = c.stack[:len(c.stack)-1]
	return c.at()
}

// Child moves to the current entry's child in dir. Without such a child the
// cursor does not move.
func (c *Cursor[K, V]) Child(dir Direction) (Entry[K, V], bool) {
	if !c.ok() {
		return Entry[K, V]{}, false
	}
	n := c.current()
	if n == nil {
		return Entry[K, V]{}, false
	}
	child := pick(n, dir)
	if child == nil {
		return Entry[K, V]{}, false
	}
	c.save()
	c.stack = append(c.stack, child)
	return c.at()
}

// Prior swaps back to the position held before the last move. It is a
// single-level undo: calling it twice returns to where it started.
func (c *Cursor[K, V]) Prior() (Entry[K, V], bool) {
	if !c.ok() {
		return Entry[K, V]{}, false
	}
	c.stack, c.prior = c.prior, c.stack
	return c.at()
}

// Depth returns the number of ancestors of the current entry plus one, or 0
// when unpositioned.
func (c *Cursor[K, V]) Depth() int { return len(c.stack) }

// The default cursor.

// Current returns the default cursor's entry.
func (t *Tree[K, V]) Current() (Entry[K, V], bool) { return t.cur.Current() }

// Least moves the default cursor to the smallest entry.
func (t *Tree[K, V]) Least() (Entry[K, V], bool) { return t.cur.Least() }

// Greatest moves the default cursor to the largest entry.
func (t *Tree[K, V]) Greatest() (Entry[K, V], bool) { return t.cur.Greatest() }

// Greater moves the default cursor to the in-order successor.
func (t *Tree[K, V]) Greater() (Entry[K, V], bool) { return t.cur.Greater() }

// Lesser moves the default cursor to the in-order predecessor.
func (t *Tree[K, V]) Lesser() (Entry[K, V], bool) { return t.cur.Lesser() }

// Parent moves the default cursor to its parent.
func (t *Tree[K, V]) Parent() (Entry[K, V], bool) { return t.cur.Parent() }

// Child moves the default cursor to a child.
func (t *Tree[K, V]) Child(dir Direction) (Entry[K, V], bool) { return t.cur.Child(dir) }

// Prior reverts the default cursor's last move.
func (t *Tree[K, V]) Prior() (Entry[K, V], bool) { return t.cur.Prior() }
