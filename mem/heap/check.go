package heap

import (
	"fmt"

	"github.com/joshuapare/memkit/internal/format"
)

// Check runs the full consistency scan: heap and chunk headers, block tiling,
// block magic, the no-adjacent-free invariant and the free-list indexes.
// It returns an error of kind Corrupt describing the first problem found.
func (h *Heap) Check() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.b == nil {
		return ErrClosed
	}
	return h.checkLocked()
}

// Walk calls fn for every block in address order. A non-nil error from fn
// stops the walk and is returned. Walk holds the shared lock, so fn must not
// call mutating methods of the same heap.
func (h *Heap) Walk(fn func(BlockInfo) error) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.b == nil {
		return ErrClosed
	}
	return h.walkLocked(func(off, chunk int, hdr format.BlockHeader) error {
		info := BlockInfo{
			Offset: off,
			Size:   hdr.AbsSize(),
			Free:   !hdr.Allocated(),
			Chunk:  chunk,
			Align:  format.MetaAlign(hdr.Meta),
		}
		if hdr.Allocated() {
			info.Ref = makeRef(off, format.MetaGen(hdr.Meta))
			info.Used = int(hdr.Used)
			info.Holds = hdr.Holds
			if s, ok := h.sites[off]; ok {
				info.Site = &s
			}
		}
		return fn(info)
	})
}

// Stats reports the occupancy of the heap.
func (h *Heap) Stats() MemStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	st := MemStats{Heaps: 1}
	if h.b == nil {
		return st
	}
	st.Chunks = len(h.chunks)
	_ = h.walkLocked(func(_, _ int, hdr format.BlockHeader) error {
		if hdr.Allocated() {
			st.Blocks++
			st.UsedBytes += int64(hdr.AbsSize())
		} else {
			st.FreeBlocks++
			st.FreeBytes += int64(hdr.AbsSize())
		}
		return nil
	})
	return st
}

// walkLocked visits every block header chunk by chunk, failing on headers
// that do not tile the chunk.
func (h *Heap) walkLocked(fn func(off, chunk int, hdr format.BlockHeader) error) error {
	data := h.data()
	for ci, c := range h.chunks {
		if c.end > len(data) {
			return corruptf(fmt.Sprintf("chunk %d ends at 0x%x beyond region 0x%x", ci, c.end, len(data)))
		}
		off := c.start + format.ChunkHeaderSize
		for off < c.end {
			hdr := h.readHeader(off)
			size := hdr.AbsSize()
			if size < format.MinBlockSize || size&format.BlockAlignmentMask != 0 || off+size > c.end {
				return corruptf(fmt.Sprintf("block 0x%x has bad size %d in chunk %d", off, hdr.Size, ci))
			}
			if err := fn(off, ci, hdr); err != nil {
				return err
			}
			off += size
		}
	}
	return nil
}

func (h *Heap) checkLocked() error {
	data := h.data()
	if err := checkHeapHeader(data); err != nil {
		return err
	}

	next := format.HeapHeaderSize
	for ci, c := range h.chunks {
		if c.start != next {
			return corruptf(fmt.Sprintf("chunk %d starts at 0x%x, want 0x%x", ci, c.start, next))
		}
		if err := checkChunkHeader(data, c.start, ci); err != nil {
			return err
		}
		next = c.end
	}
	if next != len(data) {
		return corruptf(fmt.Sprintf("chunks end at 0x%x, region is 0x%x", next, len(data)))
	}

	free := 0
	prevFree, prevChunk := false, -1
	err := h.walkLocked(func(off, chunk int, hdr format.BlockHeader) error {
		if !format.MagicOK(hdr.Meta) {
			return corruptf(fmt.Sprintf("block 0x%x has bad magic 0x%08x", off, hdr.Meta))
		}
		if chunk != prevChunk {
			prevFree, prevChunk = false, chunk
		}
		if hdr.Allocated() {
			prevFree = false
			if int(hdr.Used) > capacity(hdr.AbsSize()) {
				return corruptf(fmt.Sprintf("block 0x%x uses %d bytes of %d", off, hdr.Used, capacity(hdr.AbsSize())))
			}
			if align := format.MetaAlign(hdr.Meta); (off+format.BlockHeaderSize)%align != 0 {
				return corruptf(fmt.Sprintf("block 0x%x payload not %d-aligned", off, align))
			}
			return nil
		}
		if prevFree {
			return corruptf(fmt.Sprintf("adjacent free blocks at 0x%x", off))
		}
		prevFree = true
		free++
		cell, ok := h.byOff[off]
		if !ok || cell.size != hdr.AbsSize() {
			return corruptf(fmt.Sprintf("free block 0x%x missing from free lists", off))
		}
		if start, ok := h.endIdx[off+cell.size]; !ok || start != off {
			return corruptf(fmt.Sprintf("free block 0x%x missing from end index", off))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if free != len(h.byOff) {
		return corruptf(fmt.Sprintf("%d free blocks in region, %d indexed", free, len(h.byOff)))
	}
	return nil
}

func checkHeapHeader(data []byte) error {
	if !format.Has(data, 0, format.HeapHeaderSize) {
		return fmt.Errorf("%w: region of %d bytes", ErrNotHeap, len(data))
	}
	if string(data[:4]) != format.HeapSignature {
		return fmt.Errorf("%w: signature %q", ErrNotHeap, data[:4])
	}
	if v := format.ReadU32(data, format.HeapVersionOffset); v != format.HeapVersion {
		return corruptf(fmt.Sprintf("unsupported heap version %d", v))
	}
	if got, want := format.ReadU32(data, format.HeapChecksumOffset), format.Checksum(data); got != want {
		return corruptf(fmt.Sprintf("heap header checksum 0x%08x, want 0x%08x", got, want))
	}
	return nil
}

func checkChunkHeader(data []byte, off, seq int) error {
	if !format.Has(data, off, format.ChunkHeaderSize) ||
		string(data[off:off+4]) != format.ChunkSignature {
		return corruptf(fmt.Sprintf("chunk %d at 0x%x has no signature", seq, off))
	}
	if self := int(format.ReadU32(data, off+format.ChunkSelfOffset)); self != off {
		return corruptf(fmt.Sprintf("chunk %d at 0x%x records offset 0x%x", seq, off, self))
	}
	if s := int(format.ReadU32(data, off+format.ChunkSeqOffset)); s != seq {
		return corruptf(fmt.Sprintf("chunk at 0x%x records sequence %d, want %d", off, s, seq))
	}
	return nil
}

// load validates a mapped region and rebuilds the chunk index and free lists.
func (h *Heap) load(opts []Option) error {
	data := h.data()
	if err := checkHeapHeader(data); err != nil {
		return err
	}
	end := int(format.ReadU32(data, format.HeapDataEndOffset))
	if end < format.HeapHeaderSize || end > len(data) {
		return corruptf(fmt.Sprintf("data end 0x%x outside file of 0x%x bytes", end, len(data)))
	}

	h.unit = int(format.ReadU32(data, format.HeapUnitOffset))
	h.minAlloc = int(format.ReadU32(data, format.HeapMinAllocOffset))
	for _, opt := range opts {
		opt(h)
	}

	for off := format.HeapHeaderSize; off < end; {
		seq := len(h.chunks)
		if err := checkChunkHeader(data, off, seq); err != nil {
			return err
		}
		size := int(format.ReadU32(data, off+format.ChunkSizeOffset))
		if size < format.ChunkHeaderSize+format.MinBlockSize || size&format.ChunkAlignmentMask != 0 || off+size > end {
			return corruptf(fmt.Sprintf("chunk %d at 0x%x has bad size %d", seq, off, size))
		}
		h.chunks = append(h.chunks, chunkRange{start: off, end: off + size})
		off += size
	}
	if want := int(format.ReadU32(data, format.HeapChunkCountOff)); want != len(h.chunks) {
		return corruptf(fmt.Sprintf("found %d chunks, header records %d", len(h.chunks), want))
	}

	err := h.walkLocked(func(off, _ int, hdr format.BlockHeader) error {
		if !format.MagicOK(hdr.Meta) {
			return corruptf(fmt.Sprintf("block 0x%x has bad magic 0x%08x", off, hdr.Meta))
		}
		if !hdr.Allocated() {
			h.insertFree(off, hdr.AbsSize())
		}
		return nil
	})
	if err != nil {
		return err
	}

	// A crash between extending the file and recording the new chunk leaves
	// zeroed bytes past the recorded end; adopt them as a chunk.
	if tail := len(data) - end; tail > 0 {
		if tail&format.ChunkAlignmentMask != 0 || tail < format.ChunkHeaderSize+format.MinBlockSize {
			return corruptf(fmt.Sprintf("%d unrecorded bytes past data end 0x%x", tail, end))
		}
		h.addChunk(end, tail)
	}
	return h.checkLocked()
}
