package heap

import (
	"sync/atomic"

	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/internal/logger"
)

// Reallocate resizes the block to newSize bytes, preserving the leading
// min(old, new) bytes and zero-filling any growth. The block grows in place
// when the following block is free and large enough; otherwise it moves, the
// old Ref becomes stale and the returned Ref must be used instead. Holds carry
// over either way.
func (h *Heap) Reallocate(ref Ref, newSize int) (Ref, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	off, hdr, err := h.resolve(ref)
	if err != nil {
		return NilRef, err
	}
	total, err := h.blockTotal(newSize)
	if err != nil {
		return NilRef, err
	}
	oldUsed := int(hdr.Used)

	if h.resizeInPlace(off, hdr.AbsSize(), total) {
		h.setUsed(off, newSize)
		if newSize > oldUsed {
			clear(h.payload(off, newSize)[oldUsed:])
		}
		h.stats.ReallocInPlace++
		h.afterMutation()
		return ref, nil
	}

	newRef, newOff, err := h.moveLocked(off, hdr, total, newSize)
	if err != nil {
		return NilRef, err
	}
	dst := h.payload(newOff, newSize)
	n := copy(dst, h.payload(off, min(oldUsed, newSize)))
	clear(dst[n:])
	h.freeLocked(off)

	if h.debug {
		logger.Debug("heap: reallocate moved", "heap", h.name, "from", ref, "to", newRef, "size", newSize)
	}
	h.afterMutation()
	return newRef, nil
}

// Preallocate resizes the block at its front: the trailing min(old, new)
// bytes end up at the end of the new payload and the front is zero-filled.
// Like Reallocate it may move the block and returns the Ref to use.
func (h *Heap) Preallocate(ref Ref, newSize int) (Ref, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	off, hdr, err := h.resolve(ref)
	if err != nil {
		return NilRef, err
	}
	total, err := h.blockTotal(newSize)
	if err != nil {
		return NilRef, err
	}
	oldUsed := int(hdr.Used)
	keep := min(oldUsed, newSize)

	if total <= hdr.AbsSize() {
		// Shrinking may write a free header past the new end, so move the
		// kept bytes down first.
		p := h.payload(off, oldUsed)
		if newSize <= oldUsed {
			copy(p, p[oldUsed-keep:])
		}
		h.resizeInPlace(off, hdr.AbsSize(), total)
		h.setUsed(off, newSize)
		if newSize > oldUsed {
			shiftTail(h.payload(off, newSize), oldUsed)
		}
		h.stats.ReallocInPlace++
		h.afterMutation()
		return ref, nil
	}

	if h.resizeInPlace(off, hdr.AbsSize(), total) {
		h.setUsed(off, newSize)
		shiftTail(h.payload(off, newSize), oldUsed)
		h.stats.ReallocInPlace++
		h.afterMutation()
		return ref, nil
	}

	newRef, newOff, err := h.moveLocked(off, hdr, total, newSize)
	if err != nil {
		return NilRef, err
	}
	dst := h.payload(newOff, newSize)
	copy(dst[newSize-keep:], h.payload(off, oldUsed)[oldUsed-keep:])
	clear(dst[:newSize-keep])
	h.freeLocked(off)

	if h.debug {
		logger.Debug("heap: preallocate moved", "heap", h.name, "from", ref, "to", newRef, "size", newSize)
	}
	h.afterMutation()
	return newRef, nil
}

// shiftTail moves p[:n] to the end of p and zeroes the front.
func shiftTail(p []byte, n int) {
	gap := len(p) - n
	copy(p[gap:], p[:n])
	clear(p[:gap])
}

// Defragment moves the block to the lowest-offset free block before it that
// can hold it, rewriting *ref. It reports whether the block moved; a block
// with no earlier fit stays put and *ref is unchanged.
func (h *Heap) Defragment(ref *Ref) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	off, hdr, err := h.resolve(*ref)
	if err != nil {
		return false, err
	}
	size := hdr.AbsSize()
	align := format.MetaAlign(hdr.Meta)
	cell := h.lowestFit(size, align, off)
	if cell == nil {
		return false, nil
	}

	newOff := h.carve(cell.off, size, align)
	newRef := h.relocate(off, newOff, hdr)
	used := int(hdr.Used)
	copy(h.payload(newOff, used), h.payload(off, used))
	h.freeLocked(off)
	h.stats.DefragMoves++

	if h.debug {
		logger.Debug("heap: defragment", "heap", h.name, "from", *ref, "to", newRef)
	}
	*ref = newRef
	h.afterMutation()
	return true, nil
}

// moveLocked allocates a new block of total bytes for a block being resized
// and carries over its holds and allocation site. The caller copies the data
// and frees the old block.
func (h *Heap) moveLocked(off int, hdr format.BlockHeader, total, newSize int) (Ref, int, error) {
	align := format.MetaAlign(hdr.Meta)
	newOff, err := h.allocLocked(total, align)
	if err != nil {
		return NilRef, 0, err
	}
	hdr.Used = uint32(newSize)
	ref := h.relocate(off, newOff, hdr)
	h.stats.ReallocMoved++
	return ref, newOff, nil
}

// relocate writes an allocated header at newOff (already carved) mirroring hdr.
func (h *Heap) relocate(off, newOff int, hdr format.BlockHeader) Ref {
	ref := h.writeAllocated(newOff, int(hdr.Used), format.MetaAlign(hdr.Meta))
	atomic.StoreUint32(h.holdsPtr(newOff), hdr.Holds)
	h.moveSite(off, newOff)
	return ref
}

// resizeInPlace changes the size of the allocated block at off to total bytes
// without moving it, absorbing the following free block when growing and
// returning any usable tail to the free lists when shrinking. It reports false
// when growth would need more than the following free block offers.
func (h *Heap) resizeInPlace(off, size, total int) bool {
	chunk, _, _ := h.findChunk(off)
	next := off + size

	if total > size {
		cell, ok := h.byOff[next]
		if !ok || next >= chunk.end || size+cell.size < total {
			return false
		}
		size += h.removeFree(next)
		h.tombstone(next)
		h.stats.CoalesceForward++
	}

	if rest := size - total; rest >= format.MinBlockSize {
		tail := off + total
		if after := off + size; after < chunk.end {
			if n := h.removeFree(after); n > 0 {
				h.tombstone(after)
				rest += n
				h.stats.CoalesceForward++
			}
		}
		h.writeFree(tail, rest, h.genAt(tail))
		h.insertFree(tail, rest)
		h.stats.SplitCount++
		size = total
	}

	format.PutI32(h.data(), off+format.BlockSizeOffset, int32(-size))
	h.touch(off, format.BlockHeaderSize)
	return true
}

func (h *Heap) setUsed(off, used int) {
	format.PutU32(h.data(), off+format.BlockUsedOffset, uint32(used))
	h.touch(off, format.BlockHeaderSize)
}
