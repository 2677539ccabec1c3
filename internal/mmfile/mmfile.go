// Package mmfile provides platform-specific helpers for memory-mapping heap files
// read-write, with in-place growth.
package mmfile

import (
	"errors"
	"os"
)

// ErrClosed is returned by operations on a closed Region.
var ErrClosed = errors.New("mmfile: region is closed")

// Region is a file mapped read-write into memory. On unix it is backed by
// mmap(MAP_SHARED); elsewhere the file is read into memory and written back
// on Sync and Close.
//
// NOT thread-safe. Grow invalidates every slice previously returned by Bytes.
type Region struct {
	f    *os.File
	data []byte
}

// Create creates (or truncates) path with the given size and maps it.
func Create(path string, size int) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return nil, err
	}
	return mapFile(f, size)
}

// Open maps an existing file at path.
func Open(path string) (*Region, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return mapFile(f, int(st.Size()))
}

// Bytes returns the mapped contents.
func (r *Region) Bytes() []byte { return r.data }

// Len returns the mapped length.
func (r *Region) Len() int { return len(r.data) }

// Name returns the underlying file name.
func (r *Region) Name() string {
	if r.f == nil {
		return ""
	}
	return r.f.Name()
}
