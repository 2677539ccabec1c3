// Package queue implements growable ring-buffer queues and stacks.
//
// Queue and Stack hold values of any type in a Go slice. DataQueue and
// DataStack hold fixed-size byte records in a heap block and hand out copies
// only, since growth may move the block.
//
// A ring buffer always keeps one slot unused so that top == bottom means
// empty and top+1 == bottom (mod capacity) means full. Growth copies the live
// window in logical order into a larger buffer with bottom reset to 0.
//
// Containers are not synchronized; callers serialize mutators.
package queue

// DefaultCapacity is the initial number of slots (one stays unused).
const DefaultCapacity = 16

// Option configures a container.
type Option func(*config)

type config struct {
	capacity int
	limit    int
}

// WithCapacity sets the initial slot count (at least 2).
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = max(n, 2) }
}

// WithLimit caps the number of entries; adding to a full container evicts
// the oldest entry instead of growing. Zero means unbounded.
func WithLimit(n int) Option {
	return func(c *config) { c.limit = max(n, 0) }
}

func newConfig(opts []Option) config {
	c := config{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&c)
	}
	if c.limit > 0 && c.capacity > c.limit+1 {
		c.capacity = c.limit + 1
	}
	return c
}

// ring is the index arithmetic shared by every container.
type ring struct {
	top    int // next slot to write
	bottom int // oldest entry
	cnt    int // slots, one always unused
}

func (r *ring) len() int { return (r.top - r.bottom + r.cnt) % r.cnt }

func (r *ring) empty() bool { return r.top == r.bottom }

func (r *ring) full() bool { return (r.top+1)%r.cnt == r.bottom }

func (r *ring) next(i int) int { return (i + 1) % r.cnt }

func (r *ring) prev(i int) int { return (i - 1 + r.cnt) % r.cnt }

// at returns the slot of the i-th entry from the bottom.
func (r *ring) at(i int) int { return (r.bottom + i) % r.cnt }

// growTo returns the slot count after growth: doubled.
func (r *ring) growTo() int { return r.cnt * 2 }

// Queue is a FIFO queue.
type Queue[T any] struct {
	buf   []T
	r     ring
	limit int
}

// New returns an empty queue.
func New[T any](opts ...Option) *Queue[T] {
	c := newConfig(opts)
	return &Queue[T]{buf: make([]T, c.capacity), r: ring{cnt: c.capacity}, limit: c.limit}
}

// Enqueue adds v at the back. A limited queue that is full drops its front
// entry first.
func (q *Queue[T]) Enqueue(v T) {
	q.makeRoom()
	q.buf[q.r.top] = v
	q.r.top = q.r.next(q.r.top)
}

// Preque adds v at the front, ahead of every queued entry. A limited queue
// that is full drops its back entry first.
func (q *Queue[T]) Preque(v T) {
	if q.limit > 0 && q.r.len() >= q.limit {
		q.r.top = q.r.prev(q.r.top)
		var zero T
		q.buf[q.r.top] = zero
	}
	if q.r.full() {
		q.grow()
	}
	q.r.bottom = q.r.prev(q.r.bottom)
	q.buf[q.r.bottom] = v
}

func (q *Queue[T]) makeRoom() {
	if q.limit > 0 && q.r.len() >= q.limit {
		q.Deque()
	}
	if q.r.full() {
		q.grow()
	}
}

func (q *Queue[T]) grow() {
	n := q.r.len()
	buf := make([]T, q.r.growTo())
	for i := range n {
		buf[i] = q.buf[q.r.at(i)]
	}
	q.buf = buf
	q.r = ring{top: n, bottom: 0, cnt: len(buf)}
}

// Deque removes and returns the front entry.
func (q *Queue[T]) Deque() (T, bool) {
	var zero T
	if q.r.empty() {
		return zero, false
	}
	v := q.buf[q.r.bottom]
	q.buf[q.r.bottom] = zero
	q.r.bottom = q.r.next(q.r.bottom)
	return v, true
}

// Peek returns the front entry without removing it.
func (q *Queue[T]) Peek() (T, bool) { return q.PeekAt(0) }

// PeekAt returns the i-th entry from the front.
func (q *Queue[T]) PeekAt(i int) (T, bool) {
	if i < 0 || i >= q.r.len() {
		var zero T
		return zero, false
	}
	return q.buf[q.r.at(i)], true
}

// Len returns the number of queued entries.
func (q *Queue[T]) Len() int { return q.r.len() }

// Cap returns the number of slots, including the reserved one.
func (q *Queue[T]) Cap() int { return q.r.cnt }

// IsEmpty reports whether the queue holds no entries.
func (q *Queue[T]) IsEmpty() bool { return q.r.empty() }

// Clear removes every entry, keeping the buffer.
func (q *Queue[T]) Clear() {
	clear(q.buf)
	q.r.top, q.r.bottom = 0, 0
}
