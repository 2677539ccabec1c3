package heap

import (
	"fmt"
	"strconv"
)

// Ref refers to an allocated block: the block header offset in the low 32 bits
// and the block generation above it. A Ref stays valid until the block is freed
// or relocated by Reallocate, Preallocate or Defragment; using it afterwards
// returns ErrStaleRef instead of touching reused memory.
type Ref uint64

// NilRef is the zero Ref. No block ever has it.
const NilRef Ref = 0

func makeRef(off int, gen uint16) Ref {
	return Ref(uint64(gen)<<32 | uint64(uint32(off)))
}

// Offset returns the region offset of the block header.
func (r Ref) Offset() int { return int(uint32(r)) }

func (r Ref) gen() uint16 { return uint16(r >> 32) }

// IsNil reports whether r is NilRef.
func (r Ref) IsNil() bool { return r == NilRef }

func (r Ref) String() string {
	if r == NilRef {
		return "nil"
	}
	return "0x" + strconv.FormatUint(uint64(r.Offset()), 16) + "#" + strconv.Itoa(int(r.gen()))
}

// MemStats reports the occupancy of one heap, or of all heaps (GetMemStats).
type MemStats struct {
	FreeBytes  int64 // Bytes in free blocks, headers included
	UsedBytes  int64 // Bytes in allocated blocks, headers included
	Blocks     int   // Allocated blocks
	FreeBlocks int   // Free blocks
	Chunks     int   // Chunks (growth units) in the region
	Heaps      int   // Heaps aggregated into this value
}

// Add accumulates o into s.
func (s *MemStats) Add(o MemStats) {
	s.FreeBytes += o.FreeBytes
	s.UsedBytes += o.UsedBytes
	s.Blocks += o.Blocks
	s.FreeBlocks += o.FreeBlocks
	s.Chunks += o.Chunks
	s.Heaps += o.Heaps
}

func (s MemStats) String() string {
	return fmt.Sprintf("free=%d used=%d blocks=%d free_blocks=%d chunks=%d",
		s.FreeBytes, s.UsedBytes, s.Blocks, s.FreeBlocks, s.Chunks)
}

// Counters holds cumulative allocator operation counts.
type Counters struct {
	AllocCalls       int   // Allocate/AllocateAligned calls
	AllocFastPath    int   // Allocations served without growing
	AllocSlowPath    int   // Allocations that required growth
	FreeCalls        int   // Blocks returned to the free lists
	GrowCalls        int   // Chunks appended
	GrowBytes        int64 // Bytes appended by growth
	SplitCount       int   // Free blocks split on allocation
	CoalesceForward  int   // Merges with the following free block
	CoalesceBackward int   // Merges with the preceding free block
	ReallocInPlace   int   // Reallocate/Preallocate served without moving
	ReallocMoved     int   // Reallocate/Preallocate that moved the block
	DefragMoves      int   // Defragment calls that moved a block
}

// BlockInfo describes one block visited by Walk.
type BlockInfo struct {
	Ref    Ref // NilRef for free blocks
	Offset int // Header offset
	Size   int // Total size including header
	Used   int // Requested payload size (0 when free)
	Holds  uint32
	Align  int
	Free   bool
	Chunk  int   // Index of the containing chunk
	Site   *Site // Allocation site when debug tracking recorded one
}

// Site is an allocation site recorded in debug mode.
type Site struct {
	File string
	Line int
	Func string
}

func (s Site) String() string {
	return s.File + ":" + strconv.Itoa(s.Line)
}

// SiteInfo pairs a live block with its allocation site.
type SiteInfo struct {
	Ref  Ref
	Size int
	Site Site
}
