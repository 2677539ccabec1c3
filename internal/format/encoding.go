package format

import "encoding/binary"

// ReadU32 reads a little-endian uint32 at off.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadI32 reads a little-endian int32 at off.
func ReadI32(b []byte, off int) int32 {
	return int32(binary.LittleEndian.Uint32(b[off : off+4]))
}

// PutU32 writes a little-endian uint32 at off.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutI32 writes a little-endian int32 at off.
func PutI32(b []byte, off int, v int32) {
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(v))
}

// Checksum returns the XOR of the first 15 dwords of the heap header.
func Checksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i < HeapChecksumOffset; i += 4 {
		sum ^= ReadU32(b, i)
	}
	return sum
}
