//go:build !unix

package mmfile

import (
	"fmt"
	"io"
	"os"
)

func mapFile(f *os.File, size int) (*Region, error) {
	if size <= 0 {
		_ = f.Close()
		return nil, fmt.Errorf("mmfile: cannot map empty file %s", f.Name())
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(f, data); err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Region{f: f, data: data}, nil
}

// Grow extends the in-memory copy by n zero bytes.
func (r *Region) Grow(n int) error {
	if r.f == nil {
		return ErrClosed
	}
	if n <= 0 {
		return nil
	}
	grown := make([]byte, len(r.data)+n)
	copy(grown, r.data)
	r.data = grown
	return nil
}

// Sync writes the whole in-memory copy back; b is ignored.
func (r *Region) Sync(_ []byte) error {
	if r.f == nil {
		return ErrClosed
	}
	_, err := r.f.WriteAt(r.data, 0)
	return err
}

// Datasync flushes the file.
func (r *Region) Datasync() error {
	if r.f == nil {
		return ErrClosed
	}
	return r.f.Sync()
}

// Close writes back and closes the file.
func (r *Region) Close() error {
	if r.f == nil {
		return nil
	}
	err := r.Sync(nil)
	if cerr := r.f.Close(); err == nil {
		err = cerr
	}
	r.f = nil
	r.data = nil
	return err
}
