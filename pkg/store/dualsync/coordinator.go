// Package dualsync is the dual-backend synchronization engine. It keeps the
// fast key-value store and the durable document store consistent for the
// same logical records without any cross-store transaction: writes go to
// both stores with per-store failure isolation, reads try stores in a
// per-category priority order, and change subscriptions multiplex across
// both stores so a subscriber sees the most recent known value even while
// one store is empty or unavailable.
//
// The engine accepts transient inter-store divergence. A write that fails
// on one store leaves that store stale until the next successful write or
// an external repair run (see the repair command); nothing here retries,
// rolls back, or compensates.
package dualsync

import (
	"github.com/rs/zerolog"

	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// Coordinator owns the two store handles and the health gate. The handles
// are immutable after construction and safe for concurrent use; Coordinator
// adds no locking of its own.
//
// No error from either backend ever propagates past the Coordinator API:
// writes return typed outcomes, reads return the payload or nil, and
// store-level failures are logged for operators instead of raised to
// callers.
type Coordinator struct {
	fast    store.FastStore
	durable store.DurableStore
	gate    *HealthGate
	log     zerolog.Logger
}

// New builds a Coordinator. Either store handle may be nil when the
// corresponding backend failed to initialize, as long as the gate reports
// it unready.
func New(fast store.FastStore, durable store.DurableStore, gate *HealthGate, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		fast:    fast,
		durable: durable,
		gate:    gate,
		log:     log,
	}
}

// Gate exposes the health gate, for operator tooling.
func (c *Coordinator) Gate() *HealthGate {
	return c.gate
}
