package driven

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// ConnectionStore persists per-(user, provider) OAuth credentials.
// Exclusively owned by the connection manager; nothing else writes here.
type ConnectionStore interface {
	// Save stores a connection. Creates if new, updates if exists.
	Save(ctx context.Context, conn domain.Connection) error

	// Load retrieves the connection for (user, provider).
	// Returns domain.ErrNotFound when absent.
	Load(ctx context.Context, key domain.ConnectionKey) (*domain.Connection, error)

	// Get retrieves a connection by ID.
	Get(ctx context.Context, id string) (*domain.Connection, error)

	// Delete removes the connection for (user, provider).
	Delete(ctx context.Context, key domain.ConnectionKey) error

	// List returns all stored connections.
	List(ctx context.Context) ([]domain.Connection, error)
}

// SyncStateStore persists sync cursors per (user, provider, scope).
type SyncStateStore interface {
	// Save stores or updates sync state.
	Save(ctx context.Context, state domain.SyncState) error

	// Get retrieves sync state for a key.
	// Returns domain.ErrNotFound when absent.
	Get(ctx context.Context, key domain.SyncKey) (*domain.SyncState, error)

	// Delete removes sync state for a key.
	Delete(ctx context.Context, key domain.SyncKey) error
}
