package heap

import (
	"context"
	"unsafe"

	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/internal/mmfile"
	"github.com/joshuapare/memkit/mem/dirty"
)

// backing owns the bytes of a heap region.
type backing interface {
	bytes() []byte
	// grow extends the region by n zero bytes. The region may move.
	grow(n int) error
	// tracker returns the dirty tracker, or nil for volatile backings.
	tracker() *dirty.Tracker
	sync(ctx context.Context) error
	close() error
	kind() string
}

// alignedBytes returns a zeroed slice of length n whose first byte sits on a
// RegionAlignment boundary.
func alignedBytes(n int) []byte {
	buf := make([]byte, n+format.RegionAlignment)
	return alignSlice(buf, n)
}

// alignSlice returns buf advanced to the next RegionAlignment boundary and cut
// to n bytes, or nil if buf is too short.
func alignSlice(buf []byte, n int) []byte {
	if len(buf) == 0 {
		return nil
	}
	addr := uintptr(unsafe.Pointer(&buf[0]))
	pad := int((format.RegionAlignment - addr%format.RegionAlignment) % format.RegionAlignment)
	if pad+n > len(buf) {
		return nil
	}
	return buf[pad : pad+n : pad+n]
}

// memBacking keeps the region in Go memory.
type memBacking struct {
	data []byte
}

func (m *memBacking) bytes() []byte { return m.data }

func (m *memBacking) grow(n int) error {
	grown := alignedBytes(len(m.data) + n)
	copy(grown, m.data)
	m.data = grown
	return nil
}

func (m *memBacking) tracker() *dirty.Tracker { return nil }
func (m *memBacking) sync(context.Context) error { return nil }
func (m *memBacking) close() error {
	m.data = nil
	return nil
}

func (m *memBacking) kind() string { return "memory" }

// fixedBacking wraps a caller-supplied buffer and never grows.
type fixedBacking struct {
	data []byte
}

func (f *fixedBacking) bytes() []byte { return f.data }
func (f *fixedBacking) grow(int) error { return ErrOutOfMemory }
func (f *fixedBacking) tracker() *dirty.Tracker { return nil }
func (f *fixedBacking) sync(context.Context) error { return nil }
func (f *fixedBacking) close() error {
	f.data = nil
	return nil
}

func (f *fixedBacking) kind() string { return "fixed" }

// fileBacking maps a heap file and tracks dirty ranges for Sync.
type fileBacking struct {
	r  *mmfile.Region
	dt *dirty.Tracker
}

func newFileBacking(r *mmfile.Region) *fileBacking {
	return &fileBacking{r: r, dt: dirty.NewTracker(r)}
}

func (f *fileBacking) bytes() []byte { return f.r.Bytes() }
func (f *fileBacking) grow(n int) error { return f.r.Grow(n) }
func (f *fileBacking) tracker() *dirty.Tracker { return f.dt }
func (f *fileBacking) kind() string { return "file" }

func (f *fileBacking) sync(ctx context.Context) error {
	return f.dt.Flush(ctx)
}

func (f *fileBacking) close() error {
	err := f.dt.Flush(context.Background())
	if cerr := f.r.Close(); err == nil {
		err = cerr
	}
	return err
}
