package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/logger"
)

// Scheduler runs the recurring background tasks: proactive token refresh
// and the periodic sync of every connection. It is a pure core service
// with no external control API.
type Scheduler struct {
	config      domain.SchedulerConfig
	store       driven.SchedulerStore
	syncService driving.SyncService
	connections *ConnectionManager

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	syncService driving.SyncService,
	connections *ConnectionManager,
) *Scheduler {
	return &Scheduler{
		config:      config,
		store:       store,
		syncService: syncService,
		connections: connections,
	}
}

// Start begins the scheduler loop. Blocks until Stop is called or the
// context ends.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("Scheduler failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// initialiseTasks ensures all configured tasks exist in the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	if cfg := s.config.GetTaskConfig(domain.TaskIDTokenRefresh); cfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDTokenRefresh, "Token Refresh", cfg); err != nil {
			return err
		}
	}
	if cfg := s.config.GetTaskConfig(domain.TaskIDSyncAll); cfg.Enabled {
		if err := s.ensureTask(ctx, domain.TaskIDSyncAll, "Sync All Connections", cfg); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("Scheduler failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task asynchronously.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDTokenRefresh:
			result.ItemsProcessed, err = s.runTokenRefresh(ctx)
		case domain.TaskIDSyncAll:
			result.ItemsProcessed, err = s.runSyncAll(ctx)
		default:
			logger.Warn("Scheduler has no handler for task %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Success = false
			result.Error = err.Error()
			task.LastError = err.Error()
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("Scheduler failed to save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("Scheduler failed to record result for %s: %v", task.ID, recordErr)
		}

		// Keep the last 100 results per task.
		if pruneErr := s.store.PruneHistory(ctx, 100); pruneErr != nil {
			logger.Warn("Scheduler failed to prune history: %v", pruneErr)
		}
	}()
}

// runTokenRefresh renews tokens approaching expiry.
func (s *Scheduler) runTokenRefresh(ctx context.Context) (int, error) {
	if s.connections == nil {
		return 0, nil
	}
	return s.connections.RefreshExpiring(ctx)
}

// runSyncAll syncs every connection and counts successful jobs.
func (s *Scheduler) runSyncAll(ctx context.Context) (int, error) {
	if s.syncService == nil {
		return 0, nil
	}

	reports, err := s.syncService.SyncAll(ctx)
	succeeded := 0
	for i := range reports {
		if reports[i].State == domain.JobSucceeded {
			succeeded++
		}
	}
	return succeeded, err
}
