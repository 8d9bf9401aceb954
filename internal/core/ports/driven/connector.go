package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// Page is one page of a change listing. HasMore=true means pagination
// continues with NextCursor inside the same logical sync; the orchestrator
// keeps paging until HasMore=false before the sync is complete.
//
// When HasMore=false, NextCursor is the resume position for the next sync
// (the provider's new delta token), committed only after the final page's
// batch is acknowledged.
type Page struct {
	// Items are the remote items discovered on this page.
	Items []domain.RemoteItem

	// NextCursor is the position to continue from.
	NextCursor string

	// HasMore indicates more pages follow in this sync.
	HasMore bool
}

// Capabilities describes what a connector supports.
type Capabilities struct {
	// SupportsDelta indicates the provider issues stable delta cursors
	// and reports deletions natively. Connectors without it enumerate the
	// full tree every sync; the orchestrator diffs against the version
	// map and synthesizes deletions.
	SupportsDelta bool

	// SupportsRevoke indicates Revoke performs a provider-side token
	// revocation rather than a local-only forget.
	SupportsRevoke bool
}

// Connector encapsulates one provider's pagination and delta-query
// semantics behind a uniform contract. A connector is bound to one borrowed
// connection for the duration of a sync job; it never retains it.
type Connector interface {
	// Provider returns the provider tag.
	Provider() domain.Provider

	// Capabilities returns what this connector supports.
	Capabilities() Capabilities

	// Authenticate verifies the bound connection is usable, typically
	// with a lightweight provider call. Returns ErrAuthExpired or
	// ErrReauthRequired on credential problems.
	Authenticate(ctx context.Context) error

	// ListChanges returns one page of changes at cursor. An empty cursor
	// starts from the beginning (delta baseline or full enumeration).
	// Fails with ErrRateLimited (carrying a retry-after), ErrTransient,
	// ErrAuthExpired, or ErrInvalidCursor when the provider discarded
	// its delta state.
	ListChanges(ctx context.Context, cursor string) (*Page, error)

	// FetchContent opens the content stream for a remote item.
	// Fails with ErrNotFound if the item vanished since discovery.
	FetchContent(ctx context.Context, itemID string) (io.ReadCloser, error)

	// Revoke invalidates the borrowed connection's token at the provider.
	Revoke(ctx context.Context) error

	// Close releases resources.
	Close() error
}
