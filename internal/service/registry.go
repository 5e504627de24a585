package service

import (
	"context"
	"sync"

	"checkout-service/internal/models"
)

// Registry tracks live batches for the duration of a session, along with the
// cancel func of each batch's run context. It is process-local on purpose:
// concurrent saga runs are independent and never coordinated (each browser
// session drives its own batch).
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	batch  *models.Batch
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRegistry creates an empty batch registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Add registers a batch together with its run context and cancel func.
func (r *Registry) Add(batch *models.Batch, runCtx context.Context, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[batch.ID()] = &registryEntry{batch: batch, ctx: runCtx, cancel: cancel}
}

// RunContext returns the run context a batch's phases execute under.
func (r *Registry) RunContext(batchID string) (context.Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[batchID]
	if !ok {
		return nil, false
	}
	return entry.ctx, true
}

// Get returns a live batch by ID.
func (r *Registry) Get(batchID string) (*models.Batch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[batchID]
	if !ok {
		return nil, false
	}
	return entry.batch, true
}

// Abandon cancels a batch's run context and drops it from the registry. The
// cancellation is honored between saga steps, never mid-call; an in-flight
// remote call runs to completion.
func (r *Registry) Abandon(batchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[batchID]
	if !ok {
		return false
	}
	entry.batch.SetStatus(models.BatchStatusAbandoned)
	if entry.cancel != nil {
		entry.cancel()
	}
	delete(r.entries, batchID)
	return true
}

// Len returns the number of live batches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
