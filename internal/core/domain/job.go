package domain

import "time"

// JobState is the lifecycle state of a sync job.
type JobState string

const (
	// JobPending means the job is queued behind the concurrency bound.
	JobPending JobState = "pending"

	// JobRunning means the job is listing pages and emitting batches.
	JobRunning JobState = "running"

	// JobSucceeded means every page was processed and acknowledged.
	JobSucceeded JobState = "succeeded"

	// JobPartialFailure means some pages were committed before an
	// unrecoverable error; committed progress is retained and the
	// remaining scope is marked for the next attempt.
	JobPartialFailure JobState = "partial_failure"

	// JobFailed means the job produced no committed progress.
	JobFailed JobState = "failed"
)

// Terminal returns true for end states.
func (s JobState) Terminal() bool {
	switch s {
	case JobSucceeded, JobPartialFailure, JobFailed:
		return true
	default:
		return false
	}
}

// SyncJob is an ephemeral unit of work: one attempt to bring one sync key
// up to date. Only its terminal report outlives the run.
type SyncJob struct {
	// ID is the unique job identifier (UUID).
	ID string

	// Key is the (user, provider, scope) being synced.
	Key SyncKey

	// TriggeredAt is when the job was requested.
	TriggeredAt time.Time
}

// JobReport is the structured terminal status of a sync job. User-visible
// failure is always this shape, never a raw provider error.
type JobReport struct {
	// JobID identifies the job.
	JobID string

	// Key is the sync key the job ran against.
	Key SyncKey

	// State is the terminal state.
	State JobState

	// PagesCommitted counts pages whose batches were acknowledged and
	// whose cursor advance was persisted.
	PagesCommitted int

	// RecordsEmitted counts change records acknowledged by the emitter.
	RecordsEmitted int

	// Err is the sanitized error description for failed or partially
	// failed jobs.
	Err string

	// ResyncRequired is set when the provider invalidated its delta
	// cursor and the state was reset for a full resync.
	ResyncRequired bool

	// StartedAt and EndedAt bound the run.
	StartedAt time.Time
	EndedAt   time.Time
}
