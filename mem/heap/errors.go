package heap

import "github.com/joshuapare/memkit/pkg/types"

var (
	// ErrOutOfMemory indicates that no free block was large enough and growth failed.
	ErrOutOfMemory = &types.Error{Kind: types.ErrKindOutOfMemory, Msg: "heap: out of memory"}

	// ErrStaleRef indicates a reference to a block that was freed or relocated.
	ErrStaleRef = &types.Error{Kind: types.ErrKindMisuse, Msg: "heap: stale block reference"}

	// ErrDoubleRelease indicates Release on a block whose hold count is already zero.
	ErrDoubleRelease = &types.Error{Kind: types.ErrKindMisuse, Msg: "heap: release of unheld block"}

	// ErrClosed indicates an operation on a closed heap.
	ErrClosed = &types.Error{Kind: types.ErrKindMisuse, Msg: "heap: closed"}

	// ErrBadAlign indicates an alignment other than 1, 2, 4, 8, 16 or 32.
	ErrBadAlign = &types.Error{Kind: types.ErrKindInvalid, Msg: "heap: alignment must be a power of two <= 32"}

	// ErrBadSize indicates a negative or oversized request.
	ErrBadSize = &types.Error{Kind: types.ErrKindInvalid, Msg: "heap: bad size"}

	// ErrCorrupt indicates the consistency scan found an invalid header.
	ErrCorrupt = &types.Error{Kind: types.ErrKindCorrupt, Msg: "heap: corrupt"}

	// ErrNotHeap indicates a region that lacks a valid heap header.
	ErrNotHeap = &types.Error{Kind: types.ErrKindCorrupt, Msg: "heap: not a heap region"}
)

// corruptf builds a Corruption error describing where the scan failed.
func corruptf(msg string) *types.Error {
	return &types.Error{Kind: types.ErrKindCorrupt, Msg: "heap: corrupt: " + msg}
}
