//go:build linux || darwin

package heap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/memkit/internal/format"
	"github.com/joshuapare/memkit/pkg/types"
)

func Test_FileHeap_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.mkh")

	h, err := CreateFile(path, WithUnit(8192), WithMinAllocate(32))
	require.NoError(t, err)
	require.Equal(t, "file", h.Backing())

	a, err := h.Allocate(100)
	require.NoError(t, err)
	buf, err := h.Bytes(a)
	require.NoError(t, err)
	copy(buf, "hello")
	require.NoError(t, h.Hold(a))

	b, err := h.Allocate(50)
	require.NoError(t, err)
	require.NoError(t, h.Release(b))

	require.NoError(t, h.Sync(context.Background()))
	require.NoError(t, h.Close())

	h, err = OpenFile(path)
	require.NoError(t, err)
	defer h.Close()

	require.Equal(t, 8192, h.HeapUnit())
	require.Equal(t, 32, h.MinAllocate())
	require.NoError(t, h.Check())

	buf, err = h.Bytes(a)
	require.NoError(t, err)
	require.Equal(t, "hello", string(buf[:5]))
	holds, err := h.Holds(a)
	require.NoError(t, err)
	require.Equal(t, uint32(2), holds)
	require.False(t, h.Valid(b))

	st := h.Stats()
	require.Equal(t, 1, st.Blocks)
	require.Equal(t, 1, st.FreeBlocks)
}

func Test_FileHeap_GrowsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grow.mkh")

	h, err := CreateFile(path, WithUnit(4096))
	require.NoError(t, err)

	big, err := h.Allocate(20000)
	require.NoError(t, err)
	buf, err := h.Bytes(big)
	require.NoError(t, err)
	buf[len(buf)-1] = 0x5A
	require.Equal(t, 2, h.Stats().Chunks)
	require.NoError(t, h.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(format.HeapHeaderSize+4096+20480), fi.Size())

	h, err = OpenFile(path)
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, 2, h.Stats().Chunks)
	buf, err = h.Bytes(big)
	require.NoError(t, err)
	require.Equal(t, byte(0x5A), buf[len(buf)-1])
	require.NoError(t, h.Check())
}

func Test_FileHeap_OpenOverridesTunables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tunables.mkh")
	h, err := CreateFile(path, WithUnit(4096))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	h, err = OpenFile(path, WithMinAllocate(128))
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, 128, h.MinAllocate())
	require.Equal(t, 4096, h.HeapUnit())
}

func Test_FileHeap_RejectsForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 8192), 0o644))

	_, err := OpenFile(path)
	require.ErrorIs(t, err, ErrNotHeap)
	require.ErrorIs(t, err, types.ErrCorrupt)
}

func Test_FileHeap_RejectsBadChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.mkh")
	h, err := CreateFile(path, WithUnit(4096))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	format.PutU32(data, format.HeapUnitOffset, 12345)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = OpenFile(path)
	require.ErrorIs(t, err, types.ErrCorrupt)
}

func Test_FileHeap_AdoptsUnrecordedTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tail.mkh")
	h, err := CreateFile(path, WithUnit(4096))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	// Extend the file without recording a chunk, as a crash mid-growth would.
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(int64(format.HeapHeaderSize+4096+4096)))
	require.NoError(t, f.Close())

	h, err = OpenFile(path)
	require.NoError(t, err)
	defer h.Close()
	require.Equal(t, 2, h.Stats().Chunks)
	require.NoError(t, h.Check())
}
