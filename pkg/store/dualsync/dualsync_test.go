package dualsync

import (
	"github.com/rs/zerolog"

	"github.com/chapterhouse/chapterhouse/pkg/store"
	"github.com/chapterhouse/chapterhouse/pkg/store/storetest"
)

// newTestCoordinator wires a Coordinator to fresh fakes with both stores
// marked ready.
func newTestCoordinator() (*Coordinator, *storetest.FakeFast, *storetest.FakeDurable) {
	fast := storetest.NewFakeFast()
	durable := storetest.NewFakeDurable()
	gate := NewHealthGate()
	gate.MarkReady(store.Fast)
	gate.MarkReady(store.Durable)
	return New(fast, durable, gate, zerolog.Nop()), fast, durable
}
