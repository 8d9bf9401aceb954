// Package httpapi exposes the sync engine over HTTP: triggering jobs,
// inspecting their status, and managing connections.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/core/services"
	"github.com/custodia-labs/inlet/internal/logger"
)

// Handler holds API route handlers.
type Handler struct {
	syncSvc  driving.SyncService
	connSvc  driving.ConnectionService
	registry *services.ProviderRegistry
}

// NewHandler creates a new Handler.
func NewHandler(syncSvc driving.SyncService, connSvc driving.ConnectionService, registry *services.ProviderRegistry) *Handler {
	return &Handler{syncSvc: syncSvc, connSvc: connSvc, registry: registry}
}

// syncKeyFromQuery reads the (user_id, provider, scope) triple.
func syncKeyFromQuery(r *http.Request) domain.SyncKey {
	q := r.URL.Query()
	return domain.SyncKey{
		UserID:   q.Get("user_id"),
		Provider: domain.Provider(q.Get("provider")),
		Scope:    q.Get("scope"),
	}
}

// TriggerSync handles POST /sync. Runs one job to completion and returns
// its terminal report. Jobs for the same key queue behind each other.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Provider string `json:"provider"`
		Scope    string `json:"scope"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	key := domain.SyncKey{UserID: req.UserID, Provider: domain.Provider(req.Provider), Scope: req.Scope}
	report, err := h.syncSvc.Sync(r.Context(), key)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("user_id and a valid provider are required"))
			return
		}
		logger.Error("sync %s failed to run: %v", key, err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	writeJSON(w, http.StatusOK, toJobReportDTO(report))
}

// SyncStatus handles GET /sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	key := syncKeyFromQuery(r)
	if key.UserID == "" || !key.Provider.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("user_id and a valid provider are required"))
		return
	}

	status, err := h.syncSvc.Status(r.Context(), key)
	if err != nil {
		logger.Error("status %s failed: %v", key, err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, toStatusDTO(status))
}

// JobReport handles GET /jobs/{id}.
func (h *Handler) JobReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.syncSvc.Report(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
			return
		}
		logger.Error("report %s failed: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, toJobReportDTO(report))
}

// ListProviders handles GET /providers.
func (h *Handler) ListProviders(w http.ResponseWriter, _ *http.Request) {
	types := h.registry.List()
	out := make([]providerDTO, 0, len(types))
	for _, ct := range types {
		out = append(out, providerDTO{
			Provider:      string(ct.Provider),
			Name:          ct.Name,
			Description:   ct.Description,
			SupportsDelta: ct.SupportsDelta,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

// ListConnections handles GET /connections.
func (h *Handler) ListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := h.connSvc.List(r.Context())
	if err != nil {
		logger.Error("list connections failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	out := make([]connectionDTO, 0, len(conns))
	for i := range conns {
		out = append(out, toConnectionDTO(&conns[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"connections": out})
}

// Connect handles POST /connections. Exchanges an OAuth authorization
// code for a stored connection.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		Provider    string `json:"provider"`
		Code        string `json:"code"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	key := domain.ConnectionKey{UserID: req.UserID, Provider: domain.Provider(req.Provider)}
	conn, err := h.connSvc.Connect(r.Context(), key, req.Code, req.RedirectURI)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrUnsupportedProvider):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		default:
			logger.Error("connect %s failed: %v", key, err)
			writeJSON(w, http.StatusBadGateway, errorBody("code exchange failed"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, toConnectionDTO(conn))
}

// BulkDeleteConnections handles DELETE /connections. Each listed ID is
// attempted independently: 200 when everything was deleted, 207 when
// some deletions failed.
func (h *Handler) BulkDeleteConnections(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("ids must be a non-empty list"))
		return
	}

	result := h.connSvc.RevokeMany(r.Context(), req.IDs)

	status := http.StatusOK
	if !result.AllSucceeded() {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}
