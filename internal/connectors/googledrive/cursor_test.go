package googledrive

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

func TestCursor_RoundTrip(t *testing.T) {
	c := &Cursor{
		Version:       CursorVersion,
		Enumerating:   true,
		ListPageToken: "page-7",
	}

	got, err := DecodeCursor(c.Encode())
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestDecodeCursor_EmptyIsFresh(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, CursorVersion, c.Version)
}

func TestDecodeCursor_GarbageIsInvalid(t *testing.T) {
	_, err := DecodeCursor("not base64 at all!")
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)

	notJSON := base64.StdEncoding.EncodeToString([]byte("hello"))
	_, err = DecodeCursor(notJSON)
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestDecodeCursor_FutureVersionIsInvalid(t *testing.T) {
	c := &Cursor{Version: CursorVersion + 1, StartPageToken: "t"}

	_, err := DecodeCursor(c.Encode())
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestCursor_IsEmpty(t *testing.T) {
	assert.True(t, NewCursor().IsEmpty())
	assert.False(t, (&Cursor{Version: CursorVersion, StartPageToken: "t"}).IsEmpty())
	assert.False(t, (&Cursor{Version: CursorVersion, Enumerating: true}).IsEmpty())
}
