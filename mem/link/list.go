package link

// InvalidIndex is returned by lookups that find nothing.
const InvalidIndex = -1

// DefaultExpand is the number of slots a List grows by when full.
const DefaultExpand = 16

// List is a slot list of comparable values. Deleting a value empties its
// slot without moving the others, so indexes stay stable; Add reuses the
// first empty slot. The zero value of T marks an empty slot and cannot be
// stored.
type List[T comparable] struct {
	slots  []T
	expand int
}

// NewList returns a List that grows by expand slots at a time
// (DefaultExpand when expand <= 0).
func NewList[T comparable](expand int) *List[T] {
	if expand <= 0 {
		expand = DefaultExpand
	}
	return &List[T]{expand: expand}
}

// Add stores v in the first empty slot and returns its index.
// Adding the zero value returns InvalidIndex.
func (l *List[T]) Add(v T) int {
	var zero T
	if v == zero {
		return InvalidIndex
	}
	for i, s := range l.slots {
		if s == zero {
			l.slots[i] = v
			return i
		}
	}
	if len(l.slots) == cap(l.slots) {
		step := l.expand
		if step <= 0 {
			step = DefaultExpand
		}
		grown := make([]T, len(l.slots), len(l.slots)+step)
		copy(grown, l.slots)
		l.slots = grown
	}
	l.slots = append(l.slots, v)
	return len(l.slots) - 1
}

// Find returns the index of the first slot holding v, or InvalidIndex.
func (l *List[T]) Find(v T) int {
	var zero T
	if v == zero {
		return InvalidIndex
	}
	for i, s := range l.slots {
		if s == v {
			return i
		}
	}
	return InvalidIndex
}

// Delete empties the first slot holding v and reports whether one did.
func (l *List[T]) Delete(v T) bool {
	i := l.Find(v)
	if i == InvalidIndex {
		return false
	}
	var zero T
	l.slots[i] = zero
	return true
}

// DeleteAt empties slot i and reports whether it held a value.
func (l *List[T]) DeleteAt(i int) bool {
	var zero T
	if i < 0 || i >= len(l.slots) || l.slots[i] == zero {
		return false
	}
	l.slots[i] = zero
	return true
}

// Get returns the value in slot i, or the zero value for an empty or
// out-of-range slot.
func (l *List[T]) Get(i int) T {
	var zero T
	if i < 0 || i >= len(l.slots) {
		return zero
	}
	return l.slots[i]
}

// Set stores v in slot i, growing the list as needed. Storing the zero value
// empties the slot.
func (l *List[T]) Set(i int, v T) bool {
	if i < 0 {
		return false
	}
	if i >= len(l.slots) {
		var zero T
		if v == zero {
			return true
		}
		l.slots = append(l.slots, make([]T, i+1-len(l.slots))...)
	}
	l.slots[i] = v
	return true
}

// Count returns the number of non-empty slots.
func (l *List[T]) Count() int {
	var zero T
	n := 0
	for _, s := range l.slots {
		if s != zero {
			n++
		}
	}
	return n
}

// Len returns the number of slots, empty ones included.
func (l *List[T]) Len() int { return len(l.slots) }

// Each calls fn for every non-empty slot in index order until fn returns false.
func (l *List[T]) Each(fn func(i int, v T) bool) {
	var zero T
	for i, s := range l.slots {
		if s == zero {
			continue
		}
		if !fn(i, s) {
			return
		}
	}
}

// Empty removes every slot.
func (l *List[T]) Empty() {
	clear(l.slots)
	l.slots = l.slots[:0]
}
