// Package executor schedules a resolved runbook graph: constructs run as
// soon as their dependencies complete, independent branches run
// concurrently, and a failure skips its downstream cone without tearing
// down unrelated branches.
package executor

import (
	"sync"

	"github.com/vk/runbookgo/internal/did"
	"github.com/vk/runbookgo/internal/values"
)

// ResultsStore holds the published outputs of completed constructs. Writers
// are the per-node goroutines and background tasks; readers are dependents
// building their evaluation scope, so access is guarded by a RWMutex.
type ResultsStore struct {
	mu      sync.RWMutex
	results map[did.ConstructDid]*values.ValueStore
	order   []did.ConstructDid
}

// NewResultsStore returns an empty results store.
func NewResultsStore() *ResultsStore {
	return &ResultsStore{
		results: make(map[did.ConstructDid]*values.ValueStore),
	}
}

// Publish records a construct's outputs. Publishing twice for the same
// construct replaces the previous store; the background-task merge path
// relies on this.
func (r *ResultsStore) Publish(constructDid did.ConstructDid, outputs *values.ValueStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.results[constructDid]; !exists {
		r.order = append(r.order, constructDid)
	}
	r.results[constructDid] = outputs
}

// Merge inserts extra outputs into an already published store.
func (r *ResultsStore) Merge(constructDid did.ConstructDid, extra *values.ValueStore) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.results[constructDid]
	if !ok {
		r.results[constructDid] = extra.Clone()
		r.order = append(r.order, constructDid)
		return
	}
	for _, key := range extra.Keys() {
		val, _ := extra.Get(key)
		existing.Insert(key, val)
	}
}

// Get returns a construct's published outputs.
func (r *ResultsStore) Get(constructDid did.ConstructDid) (*values.ValueStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.results[constructDid]
	return store, ok
}

// Snapshot returns the published results in completion order. The stores
// themselves are shared; callers treat them as read-only.
func (r *ResultsStore) Snapshot() map[did.ConstructDid]*values.ValueStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[did.ConstructDid]*values.ValueStore, len(r.results))
	for k, v := range r.results {
		out[k] = v
	}
	return out
}

// Order returns the dids in first-publication order.
func (r *ResultsStore) Order() []did.ConstructDid {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]did.ConstructDid, len(r.order))
	copy(out, r.order)
	return out
}
