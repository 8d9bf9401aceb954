package driving

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// SyncStatus is the live view of a running sync job.
type SyncStatus struct {
	// JobID identifies the job.
	JobID string

	// Key is the sync key being synced.
	Key domain.SyncKey

	// State is the current job state.
	State domain.JobState

	// PagesCommitted counts acknowledged pages so far.
	PagesCommitted int

	// RecordsEmitted counts acknowledged change records so far.
	RecordsEmitted int
}

// SyncService orchestrates sync jobs.
type SyncService interface {
	// Sync runs one sync job for a key and blocks until it terminates.
	// Jobs for the same key are serialized; excess jobs per tenant queue
	// behind the concurrency bound. The returned report is also delivered
	// when the job ends in PartialFailure or Failed.
	Sync(ctx context.Context, key domain.SyncKey) (*domain.JobReport, error)

	// SyncAll runs sync jobs for every connection's configured scopes.
	SyncAll(ctx context.Context) ([]domain.JobReport, error)

	// Status returns the live status for a key, or an idle status when
	// no job is running.
	Status(ctx context.Context, key domain.SyncKey) (*SyncStatus, error)

	// Report returns the terminal report of a finished job by ID.
	// Returns domain.ErrNotFound for unknown jobs.
	Report(ctx context.Context, jobID string) (*domain.JobReport, error)
}
