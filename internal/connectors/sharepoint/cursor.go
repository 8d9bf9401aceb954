package sharepoint

import (
	"encoding/base64"
	"encoding/json"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// CursorVersion is the current cursor format version.
const CursorVersion = 1

// Cursor tracks the position of one full enumeration walk. SharePoint
// document libraries expose no stable delta token here, so each sync
// walks the whole tree and the orchestrator diffs against the version
// map. The cursor only lives within one sync: Link continues the current
// folder's paging, Pending queues folders not yet visited.
type Cursor struct {
	// Version is the cursor format version for future compatibility.
	Version int `json:"v"`

	// Link is the children continuation URL for the folder being paged.
	Link string `json:"link,omitempty"`

	// Pending queues folder item IDs awaiting enumeration.
	Pending []string `json:"pending,omitempty"`
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

// IsEmpty returns true if the walk has not started.
func (c *Cursor) IsEmpty() bool {
	return c.Link == "" && len(c.Pending) == 0
}
