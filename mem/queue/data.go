package queue

import (
	"fmt"

	"github.com/joshuapare/memkit/mem/heap"
	"github.com/joshuapare/memkit/pkg/types"
)

var (
	// ErrEmpty indicates a read from an empty DataQueue or DataStack.
	ErrEmpty = &types.Error{Kind: types.ErrKindNotFound, Msg: "queue: empty"}

	// ErrElementSize indicates a buffer that does not fit the element size.
	ErrElementSize = &types.Error{Kind: types.ErrKindInvalid, Msg: "queue: buffer does not match element size"}

	// ErrClosed indicates use after Close.
	ErrClosed = &types.Error{Kind: types.ErrKindMisuse, Msg: "queue: closed"}
)

// dataRing is a ring of fixed-size records in one heap block.
type dataRing struct {
	h     *heap.Heap
	ref   heap.Ref
	size  int
	r     ring
	limit int
}

func newDataRing(h *heap.Heap, elemSize int, opts []Option) (*dataRing, error) {
	if elemSize <= 0 {
		return nil, fmt.Errorf("%w: element size %d", ErrElementSize, elemSize)
	}
	if h == nil {
		h = heap.Default()
	}
	c := newConfig(opts)
	ref, err := h.Allocate(c.capacity * elemSize)
	if err != nil {
		return nil, err
	}
	return &dataRing{h: h, ref: ref, size: elemSize, r: ring{cnt: c.capacity}, limit: c.limit}, nil
}

func (d *dataRing) block() ([]byte, error) {
	if d.ref.IsNil() {
		return nil, ErrClosed
	}
	return d.h.Bytes(d.ref)
}

func (d *dataRing) elem(b []byte, slot int) []byte {
	return b[slot*d.size : (slot+1)*d.size]
}

// grow doubles the block and lays the live records out from slot 0.
func (d *dataRing) grow() error {
	b, err := d.block()
	if err != nil {
		return err
	}
	n := d.r.len()
	live := make([]byte, 0, n*d.size)
	for i := range n {
		live = append(live, d.elem(b, d.r.at(i))...)
	}
	cnt := d.r.growTo()
	ref, err := d.h.Reallocate(d.ref, cnt*d.size)
	if err != nil {
		return err
	}
	d.ref = ref
	if b, err = d.h.Bytes(ref); err != nil {
		return err
	}
	copy(b, live)
	d.r = ring{top: n, bottom: 0, cnt: cnt}
	return nil
}

// room makes space for one more record, evicting the bottom record of a
// full limited ring (dropBottom) or its top record otherwise.
func (d *dataRing) room(dropBottom bool) error {
	if d.ref.IsNil() {
		return ErrClosed
	}
	if d.limit > 0 && d.r.len() >= d.limit {
		if dropBottom {
			d.r.bottom = d.r.next(d.r.bottom)
		} else {
			d.r.top = d.r.prev(d.r.top)
		}
	}
	if d.r.full() {
		return d.grow()
	}
	return nil
}

func (d *dataRing) put(slot int, src []byte) error {
	b, err := d.block()
	if err != nil {
		return err
	}
	copy(d.elem(b, slot), src)
	return nil
}

func (d *dataRing) get(slot int, dst []byte) error {
	b, err := d.block()
	if err != nil {
		return err
	}
	copy(dst, d.elem(b, slot))
	return nil
}

func (d *dataRing) checkSrc(src []byte) error {
	if len(src) != d.size {
		return fmt.Errorf("%w: got %d, want %d", ErrElementSize, len(src), d.size)
	}
	return nil
}

func (d *dataRing) checkDst(dst []byte) error {
	if len(dst) < d.size {
		return fmt.Errorf("%w: got %d, want %d", ErrElementSize, len(dst), d.size)
	}
	return nil
}

func (d *dataRing) close() error {
	if d.ref.IsNil() {
		return nil
	}
	ref := d.ref
	d.ref = heap.NilRef
	d.r.top, d.r.bottom = 0, 0
	return d.h.Release(ref)
}

// DataQueue is a FIFO queue of fixed-size byte records stored in a heap
// block. Reads copy into a caller buffer; no slice into the block escapes.
type DataQueue struct {
	d *dataRing
}

// NewDataQueue allocates a queue of elemSize-byte records in h, or in the
// default heap when h is nil.
func NewDataQueue(h *heap.Heap, elemSize int, opts ...Option) (*DataQueue, error) {
	d, err := newDataRing(h, elemSize, opts)
	if err != nil {
		return nil, err
	}
	return &DataQueue{d: d}, nil
}

// ElemSize returns the record size.
func (q *DataQueue) ElemSize() int { return q.d.size }

// Ref returns the heap block holding the records. It changes on growth.
func (q *DataQueue) Ref() heap.Ref { return q.d.ref }

// Enqueue copies src to the back.
func (q *DataQueue) Enqueue(src []byte) error {
	if err := q.d.checkSrc(src); err != nil {
		return err
	}
	if err := q.d.room(true); err != nil {
		return err
	}
	if err := q.d.put(q.d.r.top, src); err != nil {
		return err
	}
	q.d.r.top = q.d.r.next(q.d.r.top)
	return nil
}

// Preque copies src to the front.
func (q *DataQueue) Preque(src []byte) error {
	if err := q.d.checkSrc(src); err != nil {
		return err
	}
	if err := q.d.room(false); err != nil {
		return err
	}
	slot := q.d.r.prev(q.d.r.bottom)
	if err := q.d.put(slot, src); err != nil {
		return err
	}
	q.d.r.bottom = slot
	return nil
}

// Deque copies the front record into dst and removes it.
func (q *DataQueue) Deque(dst []byte) error {
	if err := q.Peek(dst); err != nil {
		return err
	}
	q.d.r.bottom = q.d.r.next(q.d.r.bottom)
	return nil
}

// Peek copies the front record into dst.
func (q *DataQueue) Peek(dst []byte) error { return q.PeekAt(0, dst) }

// PeekAt copies the i-th record from the front into dst.
func (q *DataQueue) PeekAt(i int, dst []byte) error {
	if err := q.d.checkDst(dst); err != nil {
		return err
	}
	if i < 0 || i >= q.d.r.len() {
		return ErrEmpty
	}
	return q.d.get(q.d.r.at(i), dst)
}

// Len returns the number of records.
func (q *DataQueue) Len() int { return q.d.r.len() }

// IsEmpty reports whether the queue holds no records.
func (q *DataQueue) IsEmpty() bool { return q.d.r.empty() }

// Clear drops every record, keeping the block.
func (q *DataQueue) Clear() { q.d.r.top, q.d.r.bottom = 0, 0 }

// Close releases the heap block. Further operations return ErrClosed.
func (q *DataQueue) Close() error { return q.d.close() }

// DataStack is a LIFO stack of fixed-size byte records stored in a heap
// block.
type DataStack struct {
	d *dataRing
}

// NewDataStack allocates a stack of elemSize-byte records in h, or in the
// default heap when h is nil.
func NewDataStack(h *heap.Heap, elemSize int, opts ...Option) (*DataStack, error) {
	d, err := newDataRing(h, elemSize, opts)
	if err != nil {
		return nil, err
	}
	return &DataStack{d: d}, nil
}

// ElemSize returns the record size.
func (s *DataStack) ElemSize() int { return s.d.size }

// Push copies src on top. A limited stack that is full drops its bottom
// record.
func (s *DataStack) Push(src []byte) error {
	if err := s.d.checkSrc(src); err != nil {
		return err
	}
	if err := s.d.room(true); err != nil {
		return err
	}
	if err := s.d.put(s.d.r.top, src); err != nil {
		return err
	}
	s.d.r.top = s.d.r.next(s.d.r.top)
	return nil
}

// Pop copies the top record into dst and removes it.
func (s *DataStack) Pop(dst []byte) error {
	if err := s.Peek(dst); err != nil {
		return err
	}
	s.d.r.top = s.d.r.prev(s.d.r.top)
	return nil
}

// Peek copies the top record into dst.
func (s *DataStack) Peek(dst []byte) error { return s.PeekAt(0, dst) }

// PeekAt copies the i-th record from the top into dst.
func (s *DataStack) PeekAt(i int, dst []byte) error {
	if err := s.d.checkDst(dst); err != nil {
		return err
	}
	n := s.d.r.len()
	if i < 0 || i >= n {
		return ErrEmpty
	}
	return s.d.get(s.d.r.at(n-1-i), dst)
}

// Len returns the number of records.
func (s *DataStack) Len() int { return s.d.r.len() }

// IsEmpty reports whether the stack holds no records.
func (s *DataStack) IsEmpty() bool { return s.d.r.empty() }

// Clear drops every record, keeping the block.
func (s *DataStack) Clear() { s.d.r.top, s.d.r.bottom = 0, 0 }

// Close releases the heap block. Further operations return ErrClosed.
func (s *DataStack) Close() error { return s.d.close() }
