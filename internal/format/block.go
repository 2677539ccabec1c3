package format

// BlockHeader is the decoded form of a 16-byte block header.
type BlockHeader struct {
	Size  int32  // total size including header; negative when allocated
	Holds uint32 // hold count
	Used  uint32 // requested payload size
	Meta  uint32
}

// ReadBlockHeader decodes the block header at off.
func ReadBlockHeader(b []byte, off int) BlockHeader {
	return BlockHeader{
		Size:  ReadI32(b, off+BlockSizeOffset),
		Holds: ReadU32(b, off+BlockHoldsOffset),
		Used:  ReadU32(b, off+BlockUsedOffset),
		Meta:  ReadU32(b, off+BlockMetaOffset),
	}
}

// PutBlockHeader encodes h at off.
func PutBlockHeader(b []byte, off int, h BlockHeader) {
	PutI32(b, off+BlockSizeOffset, h.Size)
	PutU32(b, off+BlockHoldsOffset, h.Holds)
	PutU32(b, off+BlockUsedOffset, h.Used)
	PutU32(b, off+BlockMetaOffset, h.Meta)
}

// ClearBlockHeader zeroes the 16 header bytes at off. Used when a header is
// absorbed by coalescing so stale references to it fail the magic check.
func ClearBlockHeader(b []byte, off int) {
	clear(b[off : off+BlockHeaderSize])
}

// Allocated reports whether the header describes an allocated block.
func (h BlockHeader) Allocated() bool { return h.Size < 0 }

// AbsSize returns the block size without the allocation sign.
func (h BlockHeader) AbsSize() int {
	if h.Size < 0 {
		return int(-h.Size)
	}
	return int(h.Size)
}

// MakeMeta packs the meta word.
func MakeMeta(alignShift, flags uint32, gen uint16) uint32 {
	return BlockMagic<<metaMagicShift |
		(alignShift&metaAlignMask)<<metaAlignShift |
		(flags&metaFlagsMask)<<metaFlagsShift |
		uint32(gen)
}

// MagicOK reports whether the meta word carries the block magic.
func MagicOK(meta uint32) bool { return meta>>metaMagicShift == BlockMagic }

// MetaAlign returns the alignment recorded in the meta word.
func MetaAlign(meta uint32) int { return 1 << ((meta >> metaAlignShift) & metaAlignMask) }

// MetaFlags returns the flag bits recorded in the meta word.
func MetaFlags(meta uint32) uint32 { return (meta >> metaFlagsShift) & metaFlagsMask }

// MetaGen returns the generation recorded in the meta word.
func MetaGen(meta uint32) uint16 { return uint16(meta & metaGenMask) }
