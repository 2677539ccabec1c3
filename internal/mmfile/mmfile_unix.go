//go:build unix

package mmfile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mapFile(f *os.File, size int) (*Region, error) {
	if size <= 0 {
		_ = f.Close()
		return nil, fmt.Errorf("mmfile: cannot map empty file %s", f.Name())
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmfile: mmap failed: %w", err)
	}
	return &Region{f: f, data: data}, nil
}

// Grow extends the file by n bytes and remaps it. The new bytes are zero.
func (r *Region) Grow(n int) error {
	if r.f == nil {
		return ErrClosed
	}
	if n <= 0 {
		return nil
	}
	oldSize := len(r.data)
	newSize := oldSize + n

	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("mmfile: unmap before grow: %w", err)
	}
	r.data = nil

	if err := r.f.Truncate(int64(newSize)); err != nil {
		// Try to remap old size to recover
		r.data, _ = unix.Mmap(int(r.f.Fd()), 0, oldSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		return fmt.Errorf("mmfile: truncate: %w", err)
	}
	data, err := unix.Mmap(int(r.f.Fd()), 0, newSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		r.data, _ = unix.Mmap(int(r.f.Fd()), 0, oldSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		return fmt.Errorf("mmfile: remap after grow: %w", err)
	}
	r.data = data
	return nil
}

// Sync flushes b, which must be a sub-slice of Bytes, to disk.
func (r *Region) Sync(b []byte) error {
	if r.f == nil {
		return ErrClosed
	}
	if len(b) == 0 {
		return nil
	}
	return unix.Msync(b, unix.MS_SYNC)
}

// Datasync flushes file metadata needed to read the data back.
func (r *Region) Datasync() error {
	if r.f == nil {
		return ErrClosed
	}
	return unix.Fdatasync(int(r.f.Fd()))
}

// Close unmaps the region and closes the file. Closing twice is a no-op.
func (r *Region) Close() error {
	var err error
	if r.data != nil {
		if uerr := unix.Munmap(r.data); uerr != nil && !errors.Is(uerr, unix.EINVAL) {
			err = uerr
		}
		r.data = nil
	}
	if r.f != nil {
		if cerr := r.f.Close(); err == nil {
			err = cerr
		}
		r.f = nil
	}
	return err
}
