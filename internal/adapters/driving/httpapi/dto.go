package httpapi

import (
	"time"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driving"
)

type jobReportDTO struct {
	JobID          string `json:"job_id"`
	UserID         string `json:"user_id"`
	Provider       string `json:"provider"`
	Scope          string `json:"scope,omitempty"`
	State          string `json:"state"`
	PagesCommitted int    `json:"pages_committed"`
	RecordsEmitted int    `json:"records_emitted"`
	Error          string `json:"error,omitempty"`
	ResyncRequired bool   `json:"resync_required,omitempty"`
	StartedAt      string `json:"started_at"`
	EndedAt        string `json:"ended_at"`
}

func toJobReportDTO(r *domain.JobReport) jobReportDTO {
	return jobReportDTO{
		JobID:          r.JobID,
		UserID:         r.Key.UserID,
		Provider:       string(r.Key.Provider),
		Scope:          r.Key.Scope,
		State:          string(r.State),
		PagesCommitted: r.PagesCommitted,
		RecordsEmitted: r.RecordsEmitted,
		Error:          r.Err,
		ResyncRequired: r.ResyncRequired,
		StartedAt:      r.StartedAt.Format(time.RFC3339),
		EndedAt:        r.EndedAt.Format(time.RFC3339),
	}
}

type statusDTO struct {
	JobID          string `json:"job_id,omitempty"`
	UserID         string `json:"user_id"`
	Provider       string `json:"provider"`
	Scope          string `json:"scope,omitempty"`
	State          string `json:"state"`
	PagesCommitted int    `json:"pages_committed"`
	RecordsEmitted int    `json:"records_emitted"`
}

func toStatusDTO(s *driving.SyncStatus) statusDTO {
	state := string(s.State)
	if state == "" {
		state = "idle"
	}
	return statusDTO{
		JobID:          s.JobID,
		UserID:         s.Key.UserID,
		Provider:       string(s.Key.Provider),
		Scope:          s.Key.Scope,
		State:          state,
		PagesCommitted: s.PagesCommitted,
		RecordsEmitted: s.RecordsEmitted,
	}
}

type providerDTO struct {
	Provider      string `json:"provider"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	SupportsDelta bool   `json:"supports_delta"`
}

type connectionDTO struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	Provider          string `json:"provider"`
	AccountIdentifier string `json:"account_identifier,omitempty"`
	Connected         bool   `json:"connected"`
	TokenExpiry       string `json:"token_expiry,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// toConnectionDTO renders a connection for the API. Token material never
// leaves the store.
func toConnectionDTO(c *domain.Connection) connectionDTO {
	dto := connectionDTO{
		ID:                c.ID,
		UserID:            c.UserID,
		Provider:          string(c.Provider),
		AccountIdentifier: c.AccountIdentifier,
		Connected:         c.IsAuthenticated(),
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
	}
	if !c.Token.Expiry.IsZero() {
		dto.TokenExpiry = c.Token.Expiry.Format(time.RFC3339)
	}
	return dto
}
