package driven

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// ChangeEmitter hands reconciled change records to the downstream
// ingestion pipeline. Delivery is at-least-once: redelivery of a
// previously acknowledged (item id, version) must be a no-op downstream.
//
// Emit is atomic per batch from the orchestrator's point of view: a nil
// return acknowledges the whole batch and permits the cursor to advance.
// ErrRejected is retryable at batch granularity.
type ChangeEmitter interface {
	Emit(ctx context.Context, batch []domain.ChangeRecord) error
}
