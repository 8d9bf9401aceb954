package domain

import "time"

// SyncKey identifies the unit of sync state: one scope of one provider
// account. Scope is the provider-side subtree eligible for sync (a folder
// ID, a site ID, or "" for the whole account).
type SyncKey struct {
	UserID   string
	Provider Provider
	Scope    string
}

// String renders the key for storage and lock maps.
func (k SyncKey) String() string {
	return k.UserID + "/" + string(k.Provider) + "/" + k.Scope
}

// ConnectionKey returns the (user, provider) identity behind the key.
func (k SyncKey) ConnectionKey() ConnectionKey {
	return ConnectionKey{UserID: k.UserID, Provider: k.Provider}
}

// SyncState is the durable cursor for a sync key. It advances only after
// the corresponding change batch was acknowledged by the emitter, never on
// partial failure. Redelivery of an already-acked batch is acceptable; the
// downstream consumer is idempotent on (item id, version).
type SyncState struct {
	// Key identifies the (user, provider, scope) this state belongs to.
	Key SyncKey

	// Cursor is the opaque provider delta token. Preferred: it survives
	// renames and moves. Empty for full-enumeration providers.
	Cursor string

	// Versions maps remote item ID to the last emitted content version.
	// Full-enumeration providers diff it against consecutive listings to
	// synthesize deletions; delta providers use it to tell creates from
	// updates and to gate deletions reported by the feed.
	Versions map[string]string

	// LastSync is when the last successful sync completed.
	LastSync time.Time
}

// Empty returns true if the state carries no sync position.
func (s *SyncState) Empty() bool {
	return s.Cursor == "" && len(s.Versions) == 0
}

// Clone returns a deep copy. The orchestrator mutates a working copy and
// persists it page by page; the stored state must not alias it.
func (s *SyncState) Clone() SyncState {
	out := SyncState{
		Key:      s.Key,
		Cursor:   s.Cursor,
		LastSync: s.LastSync,
	}
	if s.Versions != nil {
		out.Versions = make(map[string]string, len(s.Versions))
		for id, v := range s.Versions {
			out.Versions[id] = v
		}
	}
	return out
}

// Reset clears the sync position for a full resync from empty state.
// Used when the provider invalidates its delta token.
func (s *SyncState) Reset() {
	s.Cursor = ""
	s.Versions = nil
}
