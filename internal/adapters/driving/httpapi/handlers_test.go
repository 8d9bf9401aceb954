package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/core/services"
)

// --- Stub services ---

type stubSyncService struct {
	report    *domain.JobReport
	syncErr   error
	status    *driving.SyncStatus
	reportErr error
}

func (s *stubSyncService) Sync(_ context.Context, key domain.SyncKey) (*domain.JobReport, error) {
	if s.syncErr != nil {
		return nil, s.syncErr
	}
	r := *s.report
	r.Key = key
	return &r, nil
}

func (s *stubSyncService) SyncAll(_ context.Context) ([]domain.JobReport, error) {
	return nil, nil
}

func (s *stubSyncService) Status(_ context.Context, key domain.SyncKey) (*driving.SyncStatus, error) {
	if s.status != nil {
		return s.status, nil
	}
	return &driving.SyncStatus{Key: key}, nil
}

func (s *stubSyncService) Report(_ context.Context, _ string) (*domain.JobReport, error) {
	if s.reportErr != nil {
		return nil, s.reportErr
	}
	return s.report, nil
}

type stubConnectionService struct {
	conns      []domain.Connection
	connectErr error
	bulkResult *driving.BulkDeleteResult
}

func (s *stubConnectionService) Connect(_ context.Context, key domain.ConnectionKey, _, _ string) (*domain.Connection, error) {
	if s.connectErr != nil {
		return nil, s.connectErr
	}
	return &domain.Connection{
		ID:       "conn-1",
		UserID:   key.UserID,
		Provider: key.Provider,
		Token:    domain.OAuthToken{AccessToken: "a", Expiry: time.Now().Add(time.Hour)},
	}, nil
}

func (s *stubConnectionService) Get(_ context.Context, _ domain.ConnectionKey) (*domain.Connection, error) {
	return nil, domain.ErrNotConnected
}

func (s *stubConnectionService) List(_ context.Context) ([]domain.Connection, error) {
	return s.conns, nil
}

func (s *stubConnectionService) Revoke(_ context.Context, _ domain.ConnectionKey) error {
	return nil
}

func (s *stubConnectionService) RevokeMany(_ context.Context, _ []string) *driving.BulkDeleteResult {
	return s.bulkResult
}

func testReport() *domain.JobReport {
	return &domain.JobReport{
		JobID:          "job-1",
		State:          domain.JobSucceeded,
		PagesCommitted: 3,
		RecordsEmitted: 250,
		StartedAt:      time.Now(),
		EndedAt:        time.Now(),
	}
}

func newTestRouter(syncSvc driving.SyncService, connSvc driving.ConnectionService) http.Handler {
	return NewRouter(syncSvc, connSvc, services.NewProviderRegistry())
}

// --- Tests ---

func TestTriggerSync(t *testing.T) {
	router := newTestRouter(&stubSyncService{report: testReport()}, &stubConnectionService{})

	body := `{"user_id":"user-1","provider":"google_drive"}`
	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got jobReportDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "succeeded", got.State)
	assert.Equal(t, 3, got.PagesCommitted)
	assert.Equal(t, 250, got.RecordsEmitted)
	assert.Equal(t, "user-1", got.UserID)
}

func TestTriggerSync_InvalidInput(t *testing.T) {
	router := newTestRouter(&stubSyncService{syncErr: domain.ErrInvalidInput}, &stubConnectionService{})

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader(`{"provider":"ftp"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerSync_MalformedBody(t *testing.T) {
	router := newTestRouter(&stubSyncService{report: testReport()}, &stubConnectionService{})

	req := httptest.NewRequest(http.MethodPost, "/sync", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncStatus_Idle(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubConnectionService{})

	req := httptest.NewRequest(http.MethodGet, "/sync/status?user_id=user-1&provider=google_drive", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got statusDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "idle", got.State)
}

func TestSyncStatus_MissingParams(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubConnectionService{})

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobReport_NotFound(t *testing.T) {
	router := newTestRouter(&stubSyncService{reportErr: domain.ErrNotFound}, &stubConnectionService{})

	req := httptest.NewRequest(http.MethodGet, "/jobs/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProviders(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubConnectionService{})

	req := httptest.NewRequest(http.MethodGet, "/providers", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Providers []providerDTO `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got.Providers, 4)
}

func TestListConnections_HidesTokenMaterial(t *testing.T) {
	connSvc := &stubConnectionService{conns: []domain.Connection{{
		ID:       "conn-1",
		UserID:   "user-1",
		Provider: domain.ProviderDropbox,
		Token:    domain.OAuthToken{AccessToken: "secret-token", Expiry: time.Now().Add(time.Hour)},
	}}}
	router := newTestRouter(&stubSyncService{}, connSvc)

	req := httptest.NewRequest(http.MethodGet, "/connections", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "secret-token")

	var got struct {
		Connections []connectionDTO `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	require.Len(t, got.Connections, 1)
	assert.True(t, got.Connections[0].Connected)
}

func TestConnect(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubConnectionService{})

	body := `{"user_id":"user-1","provider":"dropbox","code":"abc","redirect_uri":"http://localhost/cb"}`
	req := httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestConnect_UnsupportedProvider(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubConnectionService{connectErr: domain.ErrUnsupportedProvider})

	body := `{"user_id":"user-1","provider":"ftp","code":"abc"}`
	req := httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnect_ExchangeFailure(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubConnectionService{connectErr: domain.ErrTransient})

	body := `{"user_id":"user-1","provider":"dropbox","code":"abc"}`
	req := httptest.NewRequest(http.MethodPost, "/connections", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBulkDeleteConnections_AllSucceed(t *testing.T) {
	connSvc := &stubConnectionService{bulkResult: &driving.BulkDeleteResult{
		Deleted: []string{"a", "b"},
		Errors:  []driving.BulkDeleteError{},
	}}
	router := newTestRouter(&stubSyncService{}, connSvc)

	req := httptest.NewRequest(http.MethodDelete, "/connections", strings.NewReader(`{"ids":["a","b"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got driving.BulkDeleteResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []string{"a", "b"}, got.Deleted)
	assert.Empty(t, got.Errors)
}

func TestBulkDeleteConnections_PartialIsMultiStatus(t *testing.T) {
	connSvc := &stubConnectionService{bulkResult: &driving.BulkDeleteResult{
		Deleted: []string{"a"},
		Errors:  []driving.BulkDeleteError{{ID: "b", Error: "not found"}},
	}}
	router := newTestRouter(&stubSyncService{}, connSvc)

	req := httptest.NewRequest(http.MethodDelete, "/connections", strings.NewReader(`{"ids":["a","b"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusMultiStatus, rec.Code)

	var got struct {
		Deleted []string `json:"deleted"`
		Errors  []struct {
			ID    string `json:"id"`
			Error string `json:"error"`
		} `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, []string{"a"}, got.Deleted)
	require.Len(t, got.Errors, 1)
	assert.Equal(t, "b", got.Errors[0].ID)
	assert.Equal(t, "not found", got.Errors[0].Error)
}

func TestBulkDeleteConnections_EmptyList(t *testing.T) {
	router := newTestRouter(&stubSyncService{}, &stubConnectionService{})

	req := httptest.NewRequest(http.MethodDelete, "/connections", strings.NewReader(`{"ids":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "non-empty")
}
