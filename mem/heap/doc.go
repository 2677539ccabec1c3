// Package heap provides a tunable block allocator with hold/release reference
// counting, debug provenance tracking and optional full consistency checks.
//
// # Overview
//
// A Heap manages one contiguous region made of chunks. Each chunk holds
// blocks with a 16-byte header (size, hold count, requested size, meta).
// Free blocks are indexed in segregated size classes, each a min-heap, which
// gives best-fit allocation in O(log n). Offset indexes make coalescing of
// neighbours O(1) on free.
//
// Blocks are addressed by Ref, never by raw pointer: growth, Reallocate,
// Preallocate and Defragment may move data, and a Ref whose block moved or was
// freed is detected as stale (ErrStaleRef).
//
// # Backings
//
//   - New: Go memory, grows by copying into a larger buffer
//   - NewOver: a caller-supplied fixed buffer, never grows
//   - CreateFile/OpenFile: a memory-mapped file, grows by truncate+remap and
//     persists across reopen
//
// A process-wide heap is available through Default and the package-level
// functions (Allocate, Hold, Release, ...).
//
// # Usage Example
//
//	h := heap.New(heap.WithUnit(64 << 10))
//	ref, err := h.Allocate(128)
//	if err != nil {
//	    return err
//	}
//	buf, _ := h.Bytes(ref)
//	copy(buf, payload)
//
//	_ = h.Hold(ref)    // holds = 2
//	_ = h.Release(ref) // holds = 1
//	_ = h.Release(ref) // freed
//
// # Tunables
//
//   - SetMinAllocate(n): floor for small payloads
//   - SetHeapUnit(n): minimum size of each new chunk
//   - SetAllocateDebug(true): record allocation sites and log operations
//   - SetManualAllocateCheck(false): run the full consistency scan after every
//     mutating call; a corruption found this way panics with *types.Error
//
// # Thread Safety
//
// A Heap serializes structural changes internally. Hold and Release adjust
// the hold count atomically under a shared lock, so different goroutines may
// Hold and Release the same block concurrently. Slices returned by Bytes are
// only valid until the next call that can move memory.
package heap
