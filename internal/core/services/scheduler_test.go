package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
)

// schedMockSyncService scripts SyncAll for scheduler tests.
type schedMockSyncService struct {
	reports []domain.JobReport
	err     error
	calls   int
}

func (m *schedMockSyncService) Sync(_ context.Context, _ domain.SyncKey) (*domain.JobReport, error) {
	return nil, domain.ErrNotFound
}

func (m *schedMockSyncService) SyncAll(_ context.Context) ([]domain.JobReport, error) {
	m.calls++
	return m.reports, m.err
}

func (m *schedMockSyncService) Status(_ context.Context, key domain.SyncKey) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{Key: key}, nil
}

func (m *schedMockSyncService) Report(_ context.Context, _ string) (*domain.JobReport, error) {
	return nil, domain.ErrNotFound
}

func schedulerConfig(interval time.Duration) domain.SchedulerConfig {
	return domain.SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]domain.TaskConfig{
			domain.TaskIDTokenRefresh: {Enabled: true, Interval: interval},
			domain.TaskIDSyncAll:      {Enabled: true, Interval: interval},
		},
	}
}

func TestScheduler_InitialiseTasksCreatesEntries(t *testing.T) {
	store := memory.NewSchedulerStore()
	s := NewScheduler(schedulerConfig(time.Hour), store, &schedMockSyncService{}, nil)

	require.NoError(t, s.initialiseTasks(context.Background()))

	tasks, err := store.ListTasks(context.Background())
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.True(t, task.Enabled)
		assert.Equal(t, time.Hour, task.Interval)
		assert.False(t, task.NextRun.IsZero())
	}
}

func TestScheduler_EnsureTaskUpdatesChangedInterval(t *testing.T) {
	store := memory.NewSchedulerStore()
	s := NewScheduler(schedulerConfig(time.Hour), store, &schedMockSyncService{}, nil)
	require.NoError(t, s.initialiseTasks(context.Background()))

	// Re-initialise with a shorter interval.
	s2 := NewScheduler(schedulerConfig(10*time.Minute), store, &schedMockSyncService{}, nil)
	require.NoError(t, s2.initialiseTasks(context.Background()))

	task, err := store.GetTask(context.Background(), domain.TaskIDSyncAll)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, 10*time.Minute, task.Interval)
}

func TestScheduler_RunsDueSyncAllTask(t *testing.T) {
	store := memory.NewSchedulerStore()
	syncSvc := &schedMockSyncService{
		reports: []domain.JobReport{
			{State: domain.JobSucceeded},
			{State: domain.JobFailed},
			{State: domain.JobSucceeded},
		},
	}
	s := NewScheduler(schedulerConfig(time.Hour), store, syncSvc, nil)

	require.NoError(t, store.SaveTask(context.Background(), &domain.ScheduledTask{
		ID:       domain.TaskIDSyncAll,
		Name:     "Sync All Connections",
		Interval: time.Hour,
		Enabled:  true,
		NextRun:  time.Now().Add(-time.Minute),
	}))

	s.checkAndRunDueTasks(context.Background())
	s.wg.Wait()

	assert.Equal(t, 1, syncSvc.calls)

	task, err := store.GetTask(context.Background(), domain.TaskIDSyncAll)
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.False(t, task.LastRun.IsZero())
	assert.True(t, task.NextRun.After(time.Now()))

	results := store.History(domain.TaskIDSyncAll)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 2, results[0].ItemsProcessed)
}

func TestScheduler_SkipsDisabledAndNotDueTasks(t *testing.T) {
	store := memory.NewSchedulerStore()
	syncSvc := &schedMockSyncService{}
	s := NewScheduler(schedulerConfig(time.Hour), store, syncSvc, nil)

	require.NoError(t, store.SaveTask(context.Background(), &domain.ScheduledTask{
		ID:      domain.TaskIDSyncAll,
		Enabled: false,
		NextRun: time.Now().Add(-time.Minute),
	}))
	require.NoError(t, store.SaveTask(context.Background(), &domain.ScheduledTask{
		ID:      domain.TaskIDTokenRefresh,
		Enabled: true,
		NextRun: time.Now().Add(time.Hour),
	}))

	s.checkAndRunDueTasks(context.Background())
	s.wg.Wait()

	assert.Zero(t, syncSvc.calls)
}

func TestScheduler_StartStop(t *testing.T) {
	store := memory.NewSchedulerStore()
	s := NewScheduler(schedulerConfig(time.Hour), store, &schedMockSyncService{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	// Give the loop a moment to come up, then stop it.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Stop())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
