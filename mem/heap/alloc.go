package heap

import (
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/internal/logger"
)

// Allocate returns a new zeroed block able to hold size bytes, with a hold
// count of 1. Sizes below MinAllocate are raised to it. It fails with
// ErrOutOfMemory only when the heap cannot grow.
func (h *Heap) Allocate(size int) (Ref, error) {
	return h.allocate(size, 1, 3)
}

// AllocateAligned is Allocate with the payload address a multiple of align,
// which must be 1, 2, 4, 8, 16 or 32.
func (h *Heap) AllocateAligned(size, align int) (Ref, error) {
	return h.allocate(size, align, 3)
}

// allocate is the common entry point; skip is the runtime.Caller depth of the
// user frame for site tracking.
func (h *Heap) allocate(size, align, skip int) (Ref, error) {
	if !format.ValidAlign(align) {
		return NilRef, fmt.Errorf("%w: %d", ErrBadAlign, align)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.b == nil {
		return NilRef, ErrClosed
	}

	total, err := h.blockTotal(size)
	if err != nil {
		return NilRef, err
	}

	h.stats.AllocCalls++
	off, err := h.allocLocked(total, align)
	if err != nil {
		return NilRef, err
	}
	ref := h.writeAllocated(off, size, align)
	clear(h.payload(off, size))

	if h.debug {
		h.recordSite(off, skip)
		logger.Debug("heap: allocate", "heap", h.name, "ref", ref, "size", size, "align", align)
	}
	h.afterMutation()
	return ref, nil
}

// allocLocked carves a block of total bytes from the free lists, growing the
// heap when nothing fits. The returned offset is the block header; the block
// size is already written as a free header of the carved size.
func (h *Heap) allocLocked(total, align int) (int, error) {
	cell := h.findFit(total, align)
	if cell == nil {
		if err := h.grow(total, align); err != nil {
			return 0, err
		}
		h.stats.AllocSlowPath++
		cell = h.findFit(total, align)
		if cell == nil {
			return 0, fmt.Errorf("%w: no fit for %d bytes after growth", ErrOutOfMemory, total)
		}
	} else {
		h.stats.AllocFastPath++
	}
	return h.carve(cell.off, total, align), nil
}

// carve removes the free block at off from the indexes and cuts a block of
// total bytes from it, returning leading alignment padding and any usable tail
// to the free lists. The carved block's size is recorded in a free header.
func (h *Heap) carve(off, total, align int) int {
	size := h.removeFree(off)

	if pad := padFor(off, align); pad > 0 {
		h.writeFree(off, pad, h.genAt(off))
		h.insertFree(off, pad)
		off += pad
		size -= pad
	}

	if rest := size - total; rest >= format.MinBlockSize {
		tail := off + total
		h.writeFree(tail, rest, h.genAt(tail))
		h.insertFree(tail, rest)
		h.stats.SplitCount++
		size = total
	}

	format.PutI32(h.data(), off+format.BlockSizeOffset, int32(size))
	return off
}

// writeAllocated turns the carved block at off into an allocated block with a
// fresh generation and one hold.
func (h *Heap) writeAllocated(off, used, align int) Ref {
	data := h.data()
	size := format.ReadI32(data, off+format.BlockSizeOffset)
	gen := h.nextGen(off)
	format.PutBlockHeader(data, off, format.BlockHeader{
		Size:  -size,
		Holds: 1,
		Used:  uint32(used),
		Meta:  format.MakeMeta(format.AlignShift(align), 0, gen),
	})
	atomic.StoreUint32(h.holdsPtr(off), 1)
	h.touch(off, int(size))
	return makeRef(off, gen)
}

// payload returns the first n data bytes of the block at off.
func (h *Heap) payload(off, n int) []byte {
	start := off + format.BlockHeaderSize
	return h.data()[start : start+n : start+n]
}

// capacity returns the payload capacity of an allocated block of size bytes.
func capacity(size int) int { return size - format.BlockHeaderSize }

// freeLocked returns the block at off to the free lists, merging it with free
// neighbours inside its chunk so no two adjacent blocks are ever both free.
func (h *Heap) freeLocked(off int) {
	data := h.data()
	hdr := h.readHeader(off)
	size := hdr.AbsSize()
	gen := format.MetaGen(hdr.Meta)
	delete(h.sites, off)
	h.stats.FreeCalls++

	start := off
	chunk, _, _ := h.findChunk(off)

	if next := off + size; next < chunk.end {
		if n := h.removeFree(next); n > 0 {
			h.tombstone(next)
			size += n
			h.stats.CoalesceForward++
		}
	}

	if prev, ok := h.endIdx[off]; ok && prev >= chunk.start {
		n := h.removeFree(prev)
		format.PutU32(data, off+format.BlockHoldsOffset, 0)
		h.tombstone(off)
		start = prev
		size += n
		gen = h.genAt(prev)
		h.stats.CoalesceBackward++
	}

	h.writeFree(start, size, gen)
	h.insertFree(start, size)

	if h.debug {
		logger.Debug("heap: free", "heap", h.name, "offset", off, "merged_offset", start, "merged_size", size)
	}
}

// genAt returns the generation stored at off, or 0 if off holds no header.
func (h *Heap) genAt(off int) uint16 {
	meta := format.ReadU32(h.data(), off+format.BlockMetaOffset)
	if !format.MagicOK(meta) {
		return 0
	}
	return format.MetaGen(meta)
}

// Free releases the block regardless of its hold count.
func (h *Heap) Free(ref Ref) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	off, _, err := h.resolve(ref)
	if err != nil {
		return err
	}
	h.freeLocked(off)
	h.afterMutation()
	return nil
}
