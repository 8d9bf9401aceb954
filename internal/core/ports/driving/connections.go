package driving

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// BulkDeleteResult reports the outcome of a bulk connection deletion.
// Each ID is attempted independently; one failure never aborts the batch.
type BulkDeleteResult struct {
	// Deleted lists the IDs that were revoked and removed.
	Deleted []string `json:"deleted"`

	// Errors lists the IDs that failed, with a sanitized reason each.
	Errors []BulkDeleteError `json:"errors"`
}

// BulkDeleteError is one failed deletion in a bulk request.
type BulkDeleteError struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// AllSucceeded returns true if no deletion failed.
func (r *BulkDeleteResult) AllSucceeded() bool {
	return len(r.Errors) == 0
}

// ConnectionService manages the lifecycle of provider connections.
type ConnectionService interface {
	// Connect establishes a connection by exchanging an OAuth
	// authorization code and persists the resulting tokens.
	Connect(ctx context.Context, key domain.ConnectionKey, code, redirectURI string) (*domain.Connection, error)

	// Get returns the stored connection for (user, provider).
	// Returns domain.ErrNotConnected when absent.
	Get(ctx context.Context, key domain.ConnectionKey) (*domain.Connection, error)

	// List returns all stored connections.
	List(ctx context.Context) ([]domain.Connection, error)

	// Revoke revokes the provider token and removes the connection.
	Revoke(ctx context.Context, key domain.ConnectionKey) error

	// RevokeMany revokes connections by ID, each attempted independently.
	RevokeMany(ctx context.Context, ids []string) *BulkDeleteResult
}
