// Package memory provides in-memory implementations of the driven store
// interfaces, used by tests and the dry-run mode.
package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure ConnectionStore implements the interface.
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

// ConnectionStore is an in-memory implementation of driven.ConnectionStore.
type ConnectionStore struct {
	mu    sync.RWMutex
	byKey map[string]domain.Connection
	byID  map[string]string
}

// NewConnectionStore creates a new in-memory connection store.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{
		byKey: make(map[string]domain.Connection),
		byID:  make(map[string]string),
	}
}

// Save stores a connection. Creates if new, updates if exists.
func (s *ConnectionStore) Save(_ context.Context, conn domain.Connection) error {
	if conn.ID == "" || conn.UserID == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := conn.Key().String()
	s.byKey[key] = conn
	s.byID[conn.ID] = key
	return nil
}

// Load retrieves the connection for (user, provider).
func (s *ConnectionStore) Load(_ context.Context, key domain.ConnectionKey) (*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.byKey[key.String()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &conn, nil
}

// Get retrieves a connection by ID.
func (s *ConnectionStore) Get(_ context.Context, id string) (*domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	conn := s.byKey[key]
	return &conn, nil
}

// Delete removes the connection for (user, provider).
func (s *ConnectionStore) Delete(_ context.Context, key domain.ConnectionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conn, ok := s.byKey[key.String()]; ok {
		delete(s.byID, conn.ID)
	}
	delete(s.byKey, key.String())
	return nil
}

// List returns all stored connections.
func (s *ConnectionStore) List(_ context.Context) ([]domain.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Connection, 0, len(s.byKey))
	for _, conn := range s.byKey {
		out = append(out, conn)
	}
	return out, nil
}
