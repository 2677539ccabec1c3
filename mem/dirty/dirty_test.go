package dirty

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeSyncer struct {
	data     []byte
	synced   [][2]int
	datasync int
	failOn   int
}

func (f *fakeSyncer) Bytes() []byte { return f.data }

func (f *fakeSyncer) Sync(b []byte) error {
	if f.failOn > 0 && len(f.synced)+1 == f.failOn {
		return errors.New("msync: input/output error")
	}
	// Recover the offset of b within data.
	off := cap(f.data) - cap(b)
	f.synced = append(f.synced, [2]int{off, len(b)})
	return nil
}

func (f *fakeSyncer) Datasync() error {
	f.datasync++
	return nil
}

func TestCoalesceMergesAdjacentPages(t *testing.T) {
	tr := NewTracker(&fakeSyncer{data: make([]byte, 8*4096)})
	tr.Add(5000, 16)
	tr.Add(100, 16)
	tr.Add(4096, 10)
	tr.Add(3*4096+1, 1)

	got := tr.Coalesced()
	require.Equal(t, []Range{
		{Off: 0, Len: 2 * 4096},
		{Off: 3 * 4096, Len: 4096},
	}, got)
}

func TestAddIgnoresEmptyRanges(t *testing.T) {
	tr := NewTracker(&fakeSyncer{data: make([]byte, 4096)})
	tr.Add(10, 0)
	tr.Add(10, -4)
	require.Equal(t, 0, tr.Len())
	require.Nil(t, tr.Coalesced())
}

func TestFlushSyncsAndClears(t *testing.T) {
	fs := &fakeSyncer{data: make([]byte, 4*4096)}
	tr := NewTracker(fs)
	tr.Add(64, 32)
	tr.Add(2*4096, 8)

	require.NoError(t, tr.Flush(context.Background()))
	require.Equal(t, [][2]int{{0, 4096}, {2 * 4096, 4096}}, fs.synced)
	require.Equal(t, 1, fs.datasync)
	require.Equal(t, 0, tr.Len())

	// Nothing recorded: no datasync either.
	require.NoError(t, tr.Flush(context.Background()))
	require.Equal(t, 1, fs.datasync)
}

func TestFlushClampsToMapping(t *testing.T) {
	fs := &fakeSyncer{data: make([]byte, 100)}
	tr := NewTracker(fs)
	tr.Add(10, 20)

	require.NoError(t, tr.Flush(context.Background()))
	require.Equal(t, [][2]int{{0, 100}}, fs.synced)
}

func TestFlushCancelled(t *testing.T) {
	tr := NewTracker(&fakeSyncer{data: make([]byte, 4096)})
	tr.Add(0, 8)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tr.Flush(ctx), context.Canceled)
	require.Equal(t, 1, tr.Len())
}

func TestFlushKeepsRangesOnError(t *testing.T) {
	fs := &fakeSyncer{data: make([]byte, 4096), failOn: 1}
	tr := NewTracker(fs)
	tr.Add(0, 8)

	require.Error(t, tr.Flush(context.Background()))
	require.Equal(t, 1, tr.Len())

	tr.Reset()
	require.Equal(t, 0, tr.Len())
}
