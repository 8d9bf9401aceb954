package domain

import "time"

// RemoteItem is the normalized view of a provider's native file object.
// It is reconstructed on every listing call and never persisted verbatim;
// only (ID, Version) pairs survive in the sync state version map.
type RemoteItem struct {
	// ID is the provider-native item identifier.
	ID string

	// Name is the file name.
	Name string

	// Path is the provider-side path, when the provider exposes one.
	Path string

	// MIMEType is the content type.
	MIMEType string

	// Size is the content size in bytes.
	Size int64

	// ModifiedTime is the provider-reported last modification time.
	ModifiedTime time.Time

	// Version is the provider's change marker (etag, rev, version number).
	Version string

	// ParentID is the containing folder's identifier, if any.
	ParentID string

	// Deleted marks a delta entry that reports a removal.
	Deleted bool

	// WebURL is the provider's browser link for the item, if known.
	WebURL string
}

// ChangeType classifies a change record.
type ChangeType int

const (
	// ChangeCreated indicates an item not previously seen.
	ChangeCreated ChangeType = iota

	// ChangeUpdated indicates an item whose version advanced.
	ChangeUpdated

	// ChangeDeleted indicates an item that was removed.
	ChangeDeleted
)

// String returns the change type name.
func (t ChangeType) String() string {
	switch t {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ChangeRecord is one reconciled change handed to the change emitter.
// Content is lazy: ContentRef locates the bytes, fetched only when the
// downstream pipeline asks for them. The emitter's idempotency key is
// (ItemID, Version).
type ChangeRecord struct {
	// Type is the kind of change.
	Type ChangeType

	// ItemID is the provider-native item identifier.
	ItemID string

	// Version is the item version this record describes. Empty for deletes.
	Version string

	// Item carries the normalized metadata. Zero-valued for deletes
	// synthesized from the version map.
	Item RemoteItem

	// ContentRef is an opaque locator for the item content, e.g.
	// "gdrive://files/<id>". Empty for deletes.
	ContentRef string
}

// IdempotencyKey returns the deduplication key for downstream consumers.
func (r *ChangeRecord) IdempotencyKey() string {
	return r.ItemID + "@" + r.Version
}
