package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	stale := &Error{Kind: ErrKindMisuse, Msg: "heap: stale block reference"}
	wrapped := fmt.Errorf("reallocate: %w", stale)

	require.ErrorIs(t, wrapped, ErrMisuse)
	require.NotErrorIs(t, wrapped, ErrNotFound)

	other := &Error{Kind: ErrKindMisuse, Msg: "heap: release of unheld block"}
	require.NotErrorIs(t, wrapped, other)
	require.ErrorIs(t, wrapped, stale)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	require.Equal(t, ErrKindMisuse, kind)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("mmap: no space left on device")
	err := Wrap(ErrKindOutOfMemory, "heap: grow failed", cause)

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, "heap: grow failed: mmap: no space left on device", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	require.False(t, ok)

	_, ok = KindOf(nil)
	require.False(t, ok)
}

func TestErrKindString(t *testing.T) {
	tests := []struct {
		kind ErrKind
		want string
	}{
		{ErrKindOutOfMemory, "out of memory"},
		{ErrKindNotFound, "not found"},
		{ErrKindDuplicate, "duplicate"},
		{ErrKindCorrupt, "corrupt"},
		{ErrKindMisuse, "misuse"},
		{ErrKindInvalid, "invalid"},
		{ErrKind(99), "unknown"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.kind.String())
	}
}
