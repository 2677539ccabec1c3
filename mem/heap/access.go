package heap

import (
	"sync"

	"github.com/joshuapare/memkit/internal/format"
)

// Bytes returns the block's payload, len equal to the requested size.
// The slice aliases the region and is valid only until the next call that
// can move memory (Allocate, Reallocate, Preallocate, Defragment, Close).
func (h *Heap) Bytes(ref Ref) ([]byte, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	off, hdr, err := h.resolve(ref)
	if err != nil {
		return nil, err
	}
	if h.b.tracker() != nil {
		// Callers write through the slice; assume they do.
		h.touch(off, hdr.AbsSize())
	}
	return h.payload(off, int(hdr.Used)), nil
}

// SizeOf returns the requested size of the block.
func (h *Heap) SizeOf(ref Ref) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, hdr, err := h.resolve(ref)
	if err != nil {
		return 0, err
	}
	return int(hdr.Used), nil
}

// Capacity returns the payload bytes the block can hold without moving.
func (h *Heap) Capacity(ref Ref) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, hdr, err := h.resolve(ref)
	if err != nil {
		return 0, err
	}
	return capacity(hdr.AbsSize()), nil
}

// AlignOf returns the alignment the block was allocated with.
func (h *Heap) AlignOf(ref Ref) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, hdr, err := h.resolve(ref)
	if err != nil {
		return 0, err
	}
	return format.MetaAlign(hdr.Meta), nil
}

// Valid reports whether ref names a live block.
func (h *Heap) Valid(ref Ref) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, _, err := h.resolve(ref)
	return err == nil
}

// ============================================================================
// Process-wide default heap
// ============================================================================

var (
	defaultOnce sync.Once
	defaultHeap *Heap
)

// Default returns the process-wide heap, creating it on first use.
func Default() *Heap {
	defaultOnce.Do(func() {
		defaultHeap = New(WithName("default"))
	})
	return defaultHeap
}

// Allocate allocates from the default heap.
func Allocate(size int) (Ref, error) { return Default().allocate(size, 1, 3) }

// AllocateAligned allocates an aligned block from the default heap.
func AllocateAligned(size, align int) (Ref, error) {
	return Default().allocate(size, align, 3)
}

// Reallocate resizes a default-heap block.
func Reallocate(ref Ref, newSize int) (Ref, error) { return Default().Reallocate(ref, newSize) }

// Preallocate resizes a default-heap block at its front.
func Preallocate(ref Ref, newSize int) (Ref, error) { return Default().Preallocate(ref, newSize) }

// Hold adds a hold to a default-heap block.
func Hold(ref Ref) error { return Default().Hold(ref) }

// Release drops a hold from a default-heap block.
func Release(ref Ref) error { return Default().Release(ref) }

// Defragment relocates a default-heap block toward the start of the heap.
func Defragment(ref *Ref) (bool, error) { return Default().Defragment(ref) }

// Bytes returns the payload of a default-heap block.
func Bytes(ref Ref) ([]byte, error) { return Default().Bytes(ref) }

// SizeOf returns the requested size of a default-heap block.
func SizeOf(ref Ref) (int, error) { return Default().SizeOf(ref) }

// AlignOf returns the alignment of a default-heap block.
func AlignOf(ref Ref) (int, error) { return Default().AlignOf(ref) }
