package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
)

// mockSyncService implements driving.SyncService for testing.
type mockSyncService struct {
	state   domain.JobState
	syncErr error
}

func (m *mockSyncService) Sync(_ context.Context, key domain.SyncKey) (*domain.JobReport, error) {
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return &domain.JobReport{
		JobID:          "job-1",
		Key:            key,
		State:          m.state,
		PagesCommitted: 2,
		RecordsEmitted: 150,
		StartedAt:      time.Now(),
		EndedAt:        time.Now(),
	}, nil
}

func (m *mockSyncService) SyncAll(_ context.Context) ([]domain.JobReport, error) {
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return []domain.JobReport{
		{
			Key:            domain.SyncKey{UserID: "alice", Provider: domain.ProviderGoogleDrive},
			State:          domain.JobSucceeded,
			RecordsEmitted: 10,
		},
		{
			Key:   domain.SyncKey{UserID: "bob", Provider: domain.ProviderDropbox},
			State: domain.JobFailed,
			Err:   "reauthorization required",
		},
	}, nil
}

func (m *mockSyncService) Status(_ context.Context, key domain.SyncKey) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{Key: key}, nil
}

func (m *mockSyncService) Report(_ context.Context, _ string) (*domain.JobReport, error) {
	return nil, domain.ErrNotFound
}

func setupSyncTest(svc driving.SyncService) func() {
	oldSync := syncService
	syncService = svc
	return func() {
		syncService = oldSync
		syncUser, syncProvider, syncScope = "", "", ""
	}
}

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync", syncCmd.Use)
}

func TestSyncCmd_Long(t *testing.T) {
	assert.Contains(t, syncCmd.Long, "document synchronisation")
	assert.Contains(t, syncCmd.Long, "--provider")
}

func TestSyncCmd_SyncsAllWithoutFlags(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncService{state: domain.JobSucceeded})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Synchronising all connections...")
	assert.Contains(t, buf.String(), "alice/google_drive")
	assert.Contains(t, buf.String(), "reauthorization required")
}

func TestSyncCmd_SyncsOneConnection(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncService{state: domain.JobSucceeded})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"sync", "--user", "alice", "--provider", "google_drive"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "Synchronising alice/google_drive")
	assert.Contains(t, buf.String(), "2 pages, 150 records")
}

func TestSyncCmd_FailedJobIsAnError(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncService{state: domain.JobFailed})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync", "--user", "alice", "--provider", "dropbox"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed")
}

func TestSyncCmd_ServiceNotConfigured(t *testing.T) {
	cleanup := setupSyncTest(nil)
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync service not configured")
}

func TestSyncCmd_ServiceError(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncService{syncErr: domain.ErrNotConnected})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"sync", "--user", "alice", "--provider", "dropbox"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sync failed")
}

func TestStatusCmd_PrintsIdleWhenNoJob(t *testing.T) {
	cleanup := setupSyncTest(&mockSyncService{})
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status", "--user", "alice", "--provider", "google_drive"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "alice/google_drive")
	assert.Contains(t, buf.String(), "idle")
}
