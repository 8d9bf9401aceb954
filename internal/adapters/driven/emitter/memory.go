package emitter

import (
	"context"
	"sync"

	"github.com/custodia-labs/inlet/internal/core/domain"
	"github.com/custodia-labs/inlet/internal/core/ports/driven"
)

// Ensure MemoryEmitter implements the interface.
var _ driven.ChangeEmitter = (*MemoryEmitter)(nil)

// MemoryEmitter records every emitted batch in memory. Used by dry-run
// mode and tests. FailNext injects batch rejections.
type MemoryEmitter struct {
	mu       sync.Mutex
	batches  [][]domain.ChangeRecord
	failNext int
	failWith error
}

// NewMemoryEmitter creates an in-memory emitter.
func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{}
}

// FailNext makes the next n Emit calls fail with err.
func (e *MemoryEmitter) FailNext(n int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNext = n
	e.failWith = err
}

// Emit records a batch, or fails if a failure is queued.
func (e *MemoryEmitter) Emit(_ context.Context, batch []domain.ChangeRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failNext > 0 {
		e.failNext--
		return e.failWith
	}

	copied := make([]domain.ChangeRecord, len(batch))
	copy(copied, batch)
	e.batches = append(e.batches, copied)
	return nil
}

// Batches returns every acknowledged batch in emission order.
func (e *MemoryEmitter) Batches() [][]domain.ChangeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]domain.ChangeRecord, len(e.batches))
	copy(out, e.batches)
	return out
}

// Records returns every acknowledged record in emission order.
func (e *MemoryEmitter) Records() []domain.ChangeRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []domain.ChangeRecord
	for _, b := range e.batches {
		out = append(out, b...)
	}
	return out
}
