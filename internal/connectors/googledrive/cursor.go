package googledrive

import (
	"encoding/base64"
	"encoding/json"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// Cursor tracks Google Drive sync position using the Changes API.
//
// A fresh sync runs in two phases. First the connector enumerates the
// full tree with files.list while holding the start page token captured
// before the enumeration began; then incremental syncs page changes.list
// from that token. Capturing the token first means changes made during
// the enumeration are re-reported on the next sync rather than lost.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`

	// Enumerating is true while the baseline files.list walk is paging.
	Enumerating bool `json:"enumerating,omitempty"`

	// ListPageToken is the files.list continuation during enumeration.
	ListPageToken string `json:"list_page_token,omitempty"`

	// StartPageToken is the changes.getStartPageToken value, the
	// position incremental syncs continue from.
	StartPageToken string `json:"start_page_token"`
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
	return c.StartPageToken == "" && !c.Enumerating
}
