package onedrive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

func TestCursor_RoundTrip(t *testing.T) {
	c := &Cursor{
		Version: CursorVersion,
		Link:    "https://graph.microsoft.com/v1.0/me/drive/root/delta?token=abc",
	}

	got, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDecodeCursor_EmptyIsFresh(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestDecodeCursor_GarbageIsInvalid(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestDecodeCursor_FutureVersionIsInvalid(t *testing.T) {
	c := &Cursor{Version: CursorVersion + 1, Link: "x"}

	_, err := DecodeCursor(c.Encode())
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}
