package dualsync

import (
	"sync"

	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// HealthGate holds process-wide readiness state for the two backing stores.
// Every engine operation consults it first: operations whose required
// store(s) never initialized become visible no-ops instead of crashing the
// caller.
//
// Readiness is established once at process start by whoever constructs the
// store handles. MarkUnready exists for operator tooling and tests that
// simulate a backend dropping; there is no teardown path, the gate lives for
// the process lifetime.
type HealthGate struct {
	mu    sync.RWMutex
	ready map[store.ID]bool
}

// NewHealthGate returns a gate with both stores unready.
func NewHealthGate() *HealthGate {
	return &HealthGate{ready: make(map[store.ID]bool)}
}

// MarkReady records that id initialized successfully.
func (g *HealthGate) MarkReady(id store.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ready[id] = true
}

// MarkUnready records that id is not usable.
func (g *HealthGate) MarkUnready(id store.ID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ready[id] = false
}

// Ready reports whether both stores initialized.
func (g *HealthGate) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready[store.Fast] && g.ready[store.Durable]
}

// StoreReady reports whether one store initialized.
func (g *HealthGate) StoreReady(id store.ID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ready[id]
}
