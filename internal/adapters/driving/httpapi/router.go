package httpapi

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/custodia-labs/inlet/internal/core/ports/driving"
	"github.com/custodia-labs/inlet/internal/core/services"
)

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(syncSvc driving.SyncService, connSvc driving.ConnectionService, registry *services.ProviderRegistry) chi.Router {
	h := NewHandler(syncSvc, connSvc, registry)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Sync jobs.
	r.Post("/sync", h.TriggerSync)
	r.Get("/sync/status", h.SyncStatus)
	r.Get("/jobs/{id}", h.JobReport)

	// Providers and connections.
	r.Get("/providers", h.ListProviders)
	r.Get("/connections", h.ListConnections)
	r.Post("/connections", h.Connect)
	r.Delete("/connections", h.BulkDeleteConnections)

	return r
}
