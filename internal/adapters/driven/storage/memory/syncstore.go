package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure SyncStateStore implements the interface.
var _ driven.SyncStateStore = (*SyncStateStore)(nil)

// SyncStateStore is an in-memory implementation of driven.SyncStateStore.
type SyncStateStore struct {
	mu     sync.RWMutex
	states map[string]domain.SyncState
}

// NewSyncStateStore creates a new in-memory sync state store.
func NewSyncStateStore() *SyncStateStore {
	return &SyncStateStore{
		states: make(map[string]domain.SyncState),
	}
}

// Save stores or updates sync state. States are deep-copied both ways so
// the orchestrator's working copy never aliases the stored one.
func (s *SyncStateStore) Save(_ context.Context, state domain.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Key.String()] = state.Clone()
	return nil
}

// Get retrieves sync state for a key.
func (s *SyncStateStore) Get(_ context.Context, key domain.SyncKey) (*domain.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[key.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := state.Clone()
	return &copied, nil
}

// Delete removes sync state for a key.
func (s *SyncStateStore) Delete(_ context.Context, key domain.SyncKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, key.String())
	return nil
}
