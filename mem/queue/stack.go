package queue

// Stack is a LIFO stack on the same ring buffer as Queue, so a limited stack
// can drop its bottom entry in O(1).
type Stack[T any] struct {
	buf   []T
	r     ring
	limit int
}

// NewStack returns an empty stack.
func NewStack[T any](opts ...Option) *Stack[T] {
	c := newConfig(opts)
	return &Stack[T]{buf: make([]T, c.capacity), r: ring{cnt: c.capacity}, limit: c.limit}
}

// Push adds v on top. A limited stack that is full drops its bottom entry
// first.
func (s *Stack[T]) Push(v T) {
	if s.limit > 0 && s.r.len() >= s.limit {
		var zero T
		s.buf[s.r.bottom] = zero
		s.r.bottom = s.r.next(s.r.bottom)
	}
	if s.r.full() {
		s.grow()
	}
	s.buf[s.r.top] = v
	s.r.top = s.r.next(s.r.top)
}

func (s *Stack[T]) grow() {
	n := s.r.len()
	buf := make([]T, s.r.growTo())
	for i := range n {
		buf[i] = s.buf[s.r.at(i)]
	}
	s.buf = buf
	s.r = ring{top: n, bottom: 0, cnt: len(buf)}
}

// Pop removes and returns the top entry.
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if s.r.empty() {
		return zero, false
	}
	s.r.top = s.r.prev(s.r.top)
	v := s.buf[s.r.top]
	s.buf[s.r.top] = zero
	return v, true
}

// Peek returns the top entry without removing it.
func (s *Stack[T]) Peek() (T, bool) { return s.PeekAt(0) }

// PeekAt returns the i-th entry from the top.
func (s *Stack[T]) PeekAt(i int) (T, bool) {
	n := s.r.len()
	if i < 0 || i >= n {
		var zero T
		return zero, false
	}
	return s.buf[s.r.at(n-1-i)], true
}

// Len returns the number of entries.
func (s *Stack[T]) Len() int { return s.r.len() }

// Cap returns the number of slots, including the reserved one.
func (s *Stack[T]) Cap() int { return s.r.cnt }

// IsEmpty reports whether the stack holds no entries.
func (s *Stack[T]) IsEmpty() bool { return s.r.empty() }

// Clear removes every entry, keeping the buffer.
func (s *Stack[T]) Clear() {
	clear(s.buf)
	s.r.top, s.r.bottom = 0, 0
}
