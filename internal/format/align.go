package format

// Align16 returns n aligned up to the next 16-byte boundary.
// Used for block sizes and block offsets.
//
// Example:
//
//	Align16(1)  = 16
//	Align16(16) = 16
//	Align16(17) = 32
func Align16(n int) int {
	return (n + BlockAlignmentMask) & ^BlockAlignmentMask
}

// AlignChunk returns n aligned up to the next chunk boundary (64 bytes).
func AlignChunk(n int) int {
	return (n + ChunkAlignmentMask) & ^ChunkAlignmentMask
}

// AlignUp returns n aligned up to a multiple of unit. unit must be positive.
func AlignUp(n, unit int) int {
	if unit <= 1 {
		return n
	}
	return (n + unit - 1) / unit * unit
}

// ValidAlign reports whether align is one of 1, 2, 4, 8, 16, 32.
func ValidAlign(align int) bool {
	return align > 0 && align <= MaxAlign && align&(align-1) == 0
}

// AlignShift returns log2(align) for a valid alignment.
func AlignShift(align int) uint32 {
	var s uint32
	for align > 1 {
		align >>= 1
		s++
	}
	return s
}
