package driven

import (
	"context"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// SchedulerStore persists scheduled task state and run history.
type SchedulerStore interface {
	// GetTask retrieves a task by ID. Returns nil if unknown.
	GetTask(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// SaveTask stores or updates a task.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	// ListTasks returns all tasks.
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// RecordResult appends a task run result to the history.
	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// PruneHistory removes old results, keeping the most recent keep
	// entries per task.
	PruneHistory(ctx context.Context, keep int) error
}
