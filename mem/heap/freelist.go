package heap

import "container/heap"

// freeCell represents a free block in the allocator.
// Used in min-heaps for O(log n) best-fit allocation and removal.
type freeCell struct {
	off       int // Absolute region offset of the block header
	size      int // Size including header
	sc        int // Size class (which list this belongs to)
	heapIndex int // Position in heap (for heap.Remove)
}

// freeCellHeap implements heap.Interface as a min-heap keyed on block size,
// ties broken by offset so lower addresses are reused first.
type freeCellHeap []*freeCell

func (h *freeCellHeap) Len() int { return len(*h) }

func (h *freeCellHeap) Less(i, j int) bool {
	a, b := (*h)[i], (*h)[j]
	if a.size != b.size {
		return a.size < b.size
	}
	return a.off < b.off
}

func (h *freeCellHeap) Swap(i, j int) {
	(*h)[i], (*h)[j] = (*h)[j], (*h)[i]
	(*h)[i].heapIndex = i
	(*h)[j].heapIndex = j
}

func (h *freeCellHeap) Push(x any) {
	cell := x.(*freeCell) //nolint:errcheck // heap.Interface contract guarantees type
	cell.heapIndex = len(*h)
	*h = append(*h, cell)
}

func (h *freeCellHeap) Pop() any {
	old := *h
	n := len(old)
	cell := old[n-1]
	old[n-1] = nil
	cell.heapIndex = -1
	*h = old[:n-1]
	return cell
}

// insertFree indexes a free block. The header must already be written.
func (h *Heap) insertFree(off, size int) {
	sc := h.sizeTable.classOf(size)
	cell := h.cellPool.Get().(*freeCell) //nolint:errcheck // pool New returns *freeCell
	cell.off, cell.size, cell.sc = off, size, sc
	heap.Push(&h.freeLists[sc], cell)
	h.byOff[off] = cell
	h.endIdx[off+size] = off
}

// removeFree drops the free block at off from every index.
// Returns the block size, or 0 if no free block starts at off.
func (h *Heap) removeFree(off int) int {
	cell, ok := h.byOff[off]
	if !ok {
		return 0
	}
	heap.Remove(&h.freeLists[cell.sc], cell.heapIndex)
	delete(h.byOff, off)
	delete(h.endIdx, off+cell.size)
	size := cell.size
	h.cellPool.Put(cell)
	return size
}

// findFit returns the smallest free block able to hold total bytes at the
// requested alignment, or nil. The block stays indexed.
//
// Fast path: heap[0] is the smallest cell of its class; if it fits, done.
// Slow path: alignment padding can make heap[0] too small while a larger
// cell of the same class still fits, so scan the class.
func (h *Heap) findFit(total, align int) *freeCell {
	for sc := h.sizeTable.classOf(total); sc < len(h.freeLists); sc++ {
		list := h.freeLists[sc]
		if len(list) == 0 {
			continue
		}
		if top := list[0]; top.size >= total+padFor(top.off, align) {
			return top
		}
		var best *freeCell
		for _, c := range list {
			if c.size < total+padFor(c.off, align) {
				continue
			}
			if best == nil || c.size < best.size || (c.size == best.size && c.off < best.off) {
				best = c
			}
		}
		if best != nil {
			return best
		}
	}
	return nil
}

// lowestFit returns the lowest-offset free block before limit that can hold
// total bytes at the requested alignment. Used by Defragment.
func (h *Heap) lowestFit(total, align, limit int) *freeCell {
	var best *freeCell
	for off, c := range h.byOff {
		if off >= limit || c.size < total+padFor(off, align) {
			continue
		}
		if best == nil || off < best.off {
			best = c
		}
	}
	return best
}
