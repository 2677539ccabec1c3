// Package format defines the on-region layout of a memkit heap: the heap
// header, chunk headers and block headers, plus the alignment and
// little-endian helpers used to read and write them.
//
// A heap region looks like this:
//
//	0x00  heap header (64 bytes, "MEMK")
//	0x40  chunk 0: chunk header (32 bytes, "CHNK"), then blocks
//	....  chunk 1 ...
//
// Every block starts with a 16-byte header; block sizes are multiples of 16
// and include the header.
package format

const (
	// HeapSignature is the 4-byte signature at offset 0 of every heap region.
	HeapSignature = "MEMK"
	// ChunkSignature is the 4-byte signature at the start of each chunk.
	ChunkSignature = "CHNK"

	// HeapVersion is the current heap header version.
	HeapVersion = 1

	// HeapHeaderSize is the size of the heap header; the first chunk starts here.
	HeapHeaderSize = 0x40
	// ChunkHeaderSize is the size of each chunk header.
	ChunkHeaderSize = 0x20
	// BlockHeaderSize is the size of each block header.
	BlockHeaderSize = 0x10

	// BlockAlignment is the alignment of block offsets and block sizes.
	BlockAlignment     = 16
	BlockAlignmentMask = BlockAlignment - 1
	// ChunkAlignment is the alignment of chunk offsets and chunk sizes.
	ChunkAlignment     = 64
	ChunkAlignmentMask = ChunkAlignment - 1
	// RegionAlignment is the address alignment of a heap region's base.
	RegionAlignment = 64
	// MaxAlign is the largest alignment AllocateAligned accepts.
	MaxAlign = 32

	// PageSize is the granularity chunks added by growth are rounded to.
	PageSize = 4096

	// MinBlockSize is the smallest block: a bare header with no payload.
	MinBlockSize = BlockHeaderSize

	// MaxRegionSize bounds a region so offsets fit in int32.
	MaxRegionSize = 0x7FFFFFFF
)

// Heap header field offsets.
const (
	HeapSignatureOffset = 0x00
	HeapVersionOffset   = 0x04
	HeapDataEndOffset   = 0x08 // uint32: offset one past the last chunk
	HeapUnitOffset      = 0x0C // uint32: growth unit in bytes
	HeapMinAllocOffset  = 0x10 // uint32: minimum allocation payload
	HeapChunkCountOff   = 0x14 // uint32: number of chunks
	HeapChecksumOffset  = 0x3C // uint32: XOR of the first 15 dwords
)

// Chunk header field offsets (relative to the chunk start).
const (
	ChunkSignatureOffset = 0x00
	ChunkSelfOffset      = 0x04 // uint32: absolute offset of this chunk
	ChunkSizeOffset      = 0x08 // uint32: chunk size including header
	ChunkSeqOffset       = 0x0C // uint32: index of this chunk in the heap
)

// Block header field offsets (relative to the block start).
const (
	BlockSizeOffset  = 0x00 // int32: total size, negative when allocated
	BlockHoldsOffset = 0x04 // uint32: hold count, 0 when free
	BlockUsedOffset  = 0x08 // uint32: requested payload size
	BlockMetaOffset  = 0x0C // uint32: magic | align shift | flags | generation
)

// Block meta word layout.
const (
	BlockMagic      = 0xA5
	metaMagicShift  = 24
	metaAlignShift  = 20
	metaFlagsShift  = 16
	metaAlignMask   = 0xF
	metaFlagsMask   = 0xF
	metaGenMask     = 0xFFFF
	FlagSiteTracked = 0x1 // allocation site recorded by the debug layer
)
