package failures

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := os.ErrPermission
	err := Wrap(ErrIO, "optimize", "commit", "rename temp file", cause)

	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, cause)
	require.EqualError(t, err, "filesystem error: optimize: commit: rename temp file: permission denied")
}

func TestWrapWithoutDetail(t *testing.T) {
	err := Wrap(nil, "", "", "", nil)
	require.ErrorIs(t, err, ErrIO)
	require.EqualError(t, err, "filesystem error: pipeline failure")
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{Wrap(ErrDecode, "heic", "decode", "", nil), "decode"},
		{Wrap(ErrEncode, "codec", "webp", "", nil), "encode"},
		{fmt.Errorf("outer: %w", Wrap(ErrConflict, "", "", "", nil)), "conflict"},
		{Wrap(ErrConfiguration, "", "", "", nil), "configuration"},
		{context.Canceled, "canceled"},
		{errors.New("boom"), "io"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Kind(tc.err), "Kind(%v)", tc.err)
	}
	require.NotEqual(t, Hint(Wrap(ErrConflict, "", "", "", nil)), Hint(errors.New("x")))
}
