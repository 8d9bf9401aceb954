package onedrive

import (
	"encoding/base64"
	"encoding/json"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// Cursor tracks OneDrive sync position. Link is the Graph continuation
// URL: an @odata.nextLink while a sync is paging, an @odata.deltaLink
// between syncs. Graph treats both as opaque resume positions.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`

	// Link is the delta or next link to continue from.
	Link string `json:"link,omitempty"`
}

// NewCursor creates a new empty cursor.
func NewCursor() *Cursor {
	return &Cursor{Version: CursorVersion}
}

// Encode serialises the cursor to a base64 string for storage.
func (c *Cursor) Encode() string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeCursor deserialises a cursor from a base64 string.
// An empty input yields a fresh cursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return NewCursor(), nil
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	var cursor Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return nil, domain.ErrInvalidCursor
	}

	if cursor.Version > CursorVersion {
		return nil, domain.ErrInvalidCursor
	}

	return &cursor, nil
}

// IsEmpty returns true if the cursor has no sync position.
func (c *Cursor) IsEmpty() bool {
	return c.Link == ""
}
