package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncService = (*SyncOrchestrator)(nil)

const (
	// defaultMaxAttempts bounds retries of one page or batch.
	defaultMaxAttempts = 5

	// defaultMaxPerTenant bounds concurrent jobs per user.
	defaultMaxPerTenant = 4

	// defaultBatchSize bounds records per emitter call.
	defaultBatchSize = 100

	// maxReports bounds the terminal report history kept in memory.
	maxReports = 256
)

// ConnectionBorrower hands out fresh-token connections for sync jobs.
// Implemented by ConnectionManager; narrowed here so tests can stub it.
type ConnectionBorrower interface {
	Borrow(ctx context.Context, key domain.ConnectionKey) (*domain.Connection, error)
	List(ctx context.Context) ([]domain.Connection, error)
}

// SyncOrchestrator runs sync jobs: it borrows a connection, pages changes
// out of the connector, reconciles them against the sync state, and hands
// batches to the change emitter. The cursor advances only after the
// emitter acknowledges the page's batches, so a crash replays at most one
// page and the downstream consumer's (item id, version) idempotence
// absorbs the redelivery.
type SyncOrchestrator struct {
	connections ConnectionBorrower
	syncStore   driven.SyncStateStore
	factory     driven.ConnectorFactory
	emitter     driven.ChangeEmitter

	maxAttempts  int
	maxPerTenant int
	batchSize    int

	// sleep is swapped out in tests so backoff does not wall-clock wait.
	sleep func(ctx context.Context, d time.Duration) error

	locks *keyMutex

	mu      sync.RWMutex
	active  map[string]*driving.SyncStatus
	reports map[string]*domain.JobReport
	order   []string
	tenants map[string]chan struct{}
}

// NewSyncOrchestrator creates a sync orchestrator.
func NewSyncOrchestrator(
	connections ConnectionBorrower,
	syncStore driven.SyncStateStore,
	factory driven.ConnectorFactory,
	emitter driven.ChangeEmitter,
) *SyncOrchestrator {
	return &SyncOrchestrator{
		connections:  connections,
		syncStore:    syncStore,
		factory:      factory,
		emitter:      emitter,
		maxAttempts:  defaultMaxAttempts,
		maxPerTenant: defaultMaxPerTenant,
		batchSize:    defaultBatchSize,
		sleep:        sleepCtx,
		locks:        newKeyMutex(),
		active:       make(map[string]*driving.SyncStatus),
		reports:      make(map[string]*domain.JobReport),
		tenants:      make(map[string]chan struct{}),
	}
}

// SetMaxPerTenant overrides the per-user job concurrency bound.
func (o *SyncOrchestrator) SetMaxPerTenant(n int) {
	if n > 0 {
		o.maxPerTenant = n
	}
}

// SetBatchSize overrides the emitter batch bound.
func (o *SyncOrchestrator) SetBatchSize(n int) {
	if n > 0 {
		o.batchSize = n
	}
}

// SetSleep overrides the backoff sleeper for tests.
func (o *SyncOrchestrator) SetSleep(sleep func(ctx context.Context, d time.Duration) error) {
	o.sleep = sleep
}

// Sync runs one job for a key and blocks until it terminates. Jobs for
// the same key serialize; excess jobs for one user queue on the tenant
// semaphore. The report is returned for every terminal state; the error
// is only non-nil when the job could not run at all.
func (o *SyncOrchestrator) Sync(ctx context.Context, key domain.SyncKey) (*domain.JobReport, error) {
	if key.UserID == "" || !key.Provider.Valid() {
		return nil, domain.ErrInvalidInput
	}

	job := domain.SyncJob{
		ID:          uuid.NewString(),
		Key:         key,
		TriggeredAt: time.Now(),
	}

	status := &driving.SyncStatus{
		JobID: job.ID,
		Key:   key,
		State: domain.JobPending,
	}
	o.setStatus(key, status)
	defer o.clearStatus(key)

	slot := o.tenantSlot(key.UserID)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-slot }()

	unlock := o.locks.Lock(key.String())
	defer unlock()

	status.State = domain.JobRunning
	report := o.run(ctx, job, status)
	o.recordReport(report)

	if ctx.Err() != nil && report.State == domain.JobFailed {
		return report, ctx.Err()
	}
	return report, nil
}

// SyncAll runs one job per stored connection, using each connection's
// configured scope. Jobs run sequentially; the scheduler calls this on a
// timer and has no latency requirement.
func (o *SyncOrchestrator) SyncAll(ctx context.Context) ([]domain.JobReport, error) {
	conns, err := o.connections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}

	reports := make([]domain.JobReport, 0, len(conns))
	var errs []error
	for i := range conns {
		key := domain.SyncKey{
			UserID:   conns[i].UserID,
			Provider: conns[i].Provider,
			Scope:    conns[i].Config["scope"],
		}
		report, err := o.Sync(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("sync %s: %w", key, err))
			continue
		}
		reports = append(reports, *report)
	}

	return reports, errors.Join(errs...)
}

// Status returns the live status for a key, or an idle status when no job
// is running.
func (o *SyncOrchestrator) Status(_ context.Context, key domain.SyncKey) (*driving.SyncStatus, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if status, ok := o.active[key.String()]; ok {
		copied := *status
		return &copied, nil
	}
	return &driving.SyncStatus{Key: key}, nil
}

// Report returns the terminal report of a finished job.
func (o *SyncOrchestrator) Report(_ context.Context, jobID string) (*domain.JobReport, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	report, ok := o.reports[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *report
	return &copied, nil
}

// run executes one job to a terminal report. Never returns nil.
//
//nolint:gocognit,gocyclo // Orchestration loop with the retry and resync paths inline
func (o *SyncOrchestrator) run(ctx context.Context, job domain.SyncJob, status *driving.SyncStatus) *domain.JobReport {
	report := &domain.JobReport{
		JobID:     job.ID,
		Key:       job.Key,
		StartedAt: time.Now(),
	}

	conn, err := o.connections.Borrow(ctx, job.Key.ConnectionKey())
	if err != nil {
		return o.finish(report, status, err)
	}

	connector, err := o.factory.Create(*conn, job.Key.Scope)
	if err != nil {
		return o.finish(report, status, err)
	}
	// The connector variable is rebound on mid-job reauth; close whichever
	// instance is live at exit.
	defer func() { connector.Close() }()

	state, err := o.syncStore.Get(ctx, job.Key)
	if errors.Is(err, domain.ErrNotFound) {
		state = &domain.SyncState{Key: job.Key}
	} else if err != nil {
		return o.finish(report, status, fmt.Errorf("load sync state: %w", err))
	}

	working := state.Clone()
	fullEnum := !connector.Capabilities().SupportsDelta
	rec := newReconciler(&working, fullEnum)
	cursor := working.Cursor

	// Deletion synthesis needs a walk that covered everything. A job that
	// resumes a partial walk mid-cursor skips synthesis for this round.
	completeWalk := cursor == ""

	logger.Info("Starting sync %s for %s", job.ID, job.Key)

	resynced := false
	reauthed := false

	for {
		page, err := o.listPage(ctx, connector, cursor)

		if errors.Is(err, domain.ErrInvalidCursor) && !resynced {
			// Provider discarded its delta state. Restart from empty;
			// already-emitted records redeliver and dedupe downstream.
			logger.Warn("Cursor invalidated for %s, full resync", job.Key)
			resynced = true
			report.ResyncRequired = true
			working.Reset()
			rec = newReconciler(&working, fullEnum)
			cursor = ""
			completeWalk = true
			continue
		}

		if errors.Is(err, domain.ErrAuthExpired) && !reauthed {
			// Token aged out mid-job. Borrow again (the manager refreshes
			// proactively) and rebuild the connector once.
			reauthed = true
			conn, err = o.connections.Borrow(ctx, job.Key.ConnectionKey())
			if err != nil {
				return o.finish(report, status, err)
			}
			connector.Close()
			connector, err = o.factory.Create(*conn, job.Key.Scope)
			if err != nil {
				return o.finish(report, status, err)
			}
			continue
		}

		if err != nil {
			return o.finish(report, status, err)
		}

		records := rec.Apply(page.Items)

		if !page.HasMore && fullEnum && completeWalk {
			// The walk covered every live item without error; anything
			// left in the version map is gone at the provider.
			records = append(records, rec.Deletions()...)
		}

		if err := o.emitRecords(ctx, records, status); err != nil {
			return o.finish(report, status, err)
		}

		// Commit the page: cursor and version map advance together, only
		// after the emitter acknowledged everything on the page.
		working.Cursor = page.NextCursor
		working.Versions = rec.Versions()
		if !page.HasMore {
			working.LastSync = time.Now()
		}
		if err := o.syncStore.Save(ctx, working); err != nil {
			return o.finish(report, status, fmt.Errorf("save sync state: %w", err))
		}

		report.PagesCommitted++
		status.PagesCommitted = report.PagesCommitted

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	report.RecordsEmitted = status.RecordsEmitted
	report.State = domain.JobSucceeded
	report.EndedAt = time.Now()
	status.State = report.State

	logger.Info("Sync %s complete: %d pages, %d records", job.ID, report.PagesCommitted, report.RecordsEmitted)
	return report
}

// listPage fetches one page with retry. Transient errors back off
// exponentially up to the attempt bound; rate limiting suspends until the
// provider's retry-after deadline without consuming attempts. Auth,
// cursor, and reauth errors escalate to the caller immediately.
func (o *SyncOrchestrator) listPage(ctx context.Context, connector driven.Connector, cursor string) (*driven.Page, error) {
	suspensions := 0

	for attempt := 1; attempt <= o.maxAttempts; {
		page, err := connector.ListChanges(ctx, cursor)
		if err == nil {
			return page, nil
		}

		switch {
		case errors.Is(err, domain.ErrRateLimited):
			suspensions++
			if suspensions > o.maxAttempts {
				return nil, err
			}
			wait := domain.RetryAfterOf(err, time.Minute)
			logger.Debug("Rate limited, suspending %s", wait)
			if serr := o.sleep(ctx, wait); serr != nil {
				return nil, serr
			}

		case domain.Retryable(err):
			if attempt == o.maxAttempts {
				return nil, err
			}
			logger.Debug("List attempt %d failed: %v", attempt, err)
			if serr := o.sleep(ctx, retryBackoff(attempt)); serr != nil {
				return nil, serr
			}
			attempt++

		default:
			return nil, err
		}
	}

	return nil, domain.ErrTransient
}

// emitRecords hands records to the emitter in bounded batches, retrying
// rejected batches with backoff. The record count advances per
// acknowledged batch; a batch that fails after an earlier ack leaves the
// page uncommitted and the acked records redeliver on the next attempt.
func (o *SyncOrchestrator) emitRecords(ctx context.Context, records []domain.ChangeRecord, status *driving.SyncStatus) error {
	for start := 0; start < len(records); start += o.batchSize {
		end := start + o.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		if err := o.emitBatch(ctx, batch); err != nil {
			return err
		}
		status.RecordsEmitted += len(batch)
	}
	return nil
}

func (o *SyncOrchestrator) emitBatch(ctx context.Context, batch []domain.ChangeRecord) error {
	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		err := o.emitter.Emit(ctx, batch)
		if err == nil {
			return nil
		}
		lastErr = err
		if !domain.Retryable(err) {
			return err
		}
		if attempt == o.maxAttempts {
			break
		}
		logger.Debug("Emit attempt %d failed: %v", attempt, err)
		if serr := o.sleep(ctx, retryBackoff(attempt)); serr != nil {
			return serr
		}
	}
	return lastErr
}

// finish closes a report in a failure state. Committed pages downgrade
// the failure to partial: progress up to the last acked page is durable
// and the next job resumes from there.
func (o *SyncOrchestrator) finish(report *domain.JobReport, status *driving.SyncStatus, err error) *domain.JobReport {
	report.RecordsEmitted = status.RecordsEmitted
	report.Err = sanitizeError(err)
	report.EndedAt = time.Now()

	if report.PagesCommitted > 0 {
		report.State = domain.JobPartialFailure
	} else {
		report.State = domain.JobFailed
	}
	status.State = report.State

	logger.Warn("Sync %s ended %s after %d pages: %s", report.JobID, report.State, report.PagesCommitted, report.Err)
	return report
}

// tenantSlot returns the concurrency semaphore for a user.
func (o *SyncOrchestrator) tenantSlot(userID string) chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()

	slot, ok := o.tenants[userID]
	if !ok {
		slot = make(chan struct{}, o.maxPerTenant)
		o.tenants[userID] = slot
	}
	return slot
}

func (o *SyncOrchestrator) setStatus(key domain.SyncKey, status *driving.SyncStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.active[key.String()] = status
}

func (o *SyncOrchestrator) clearStatus(key domain.SyncKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, key.String())
}

// recordReport stores a terminal report, evicting the oldest past the
// history bound.
func (o *SyncOrchestrator) recordReport(report *domain.JobReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.reports[report.JobID] = report
	o.order = append(o.order, report.JobID)
	for len(o.order) > maxReports {
		delete(o.reports, o.order[0])
		o.order = o.order[1:]
	}
}

// sanitizeError maps an internal error onto the stable, user-visible
// failure vocabulary. Raw provider errors never reach a report.
func sanitizeError(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrReauthRequired):
		return domain.ErrReauthRequired.Error()
	case errors.Is(err, domain.ErrNotConnected):
		return domain.ErrNotConnected.Error()
	case errors.Is(err, domain.ErrAuthExpired):
		return domain.ErrAuthExpired.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return domain.ErrRateLimited.Error()
	case errors.Is(err, domain.ErrInvalidCursor):
		return domain.ErrInvalidCursor.Error()
	case errors.Is(err, domain.ErrRejected):
		return domain.ErrRejected.Error()
	case errors.Is(err, domain.ErrNotFound):
		return domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrUnsupportedProvider):
		return domain.ErrUnsupportedProvider.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrTransient):
		return domain.ErrTransient.Error()
	default:
		return "sync failed"
	}
}
