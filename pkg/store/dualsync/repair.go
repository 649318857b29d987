package dualsync

import (
	"context"
	"fmt"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// Direction selects which store a repair run reads from.
type Direction string

const (
	// FastToDurable replays fast-store records into the durable store,
	// the usual direction after a durable-store outage or before it has
	// been backfilled.
	FastToDurable Direction = "fast-to-durable"
	// DurableToFast replays durable-store documents into the fast store.
	DurableToFast Direction = "durable-to-fast"
)

// Repair is the external reconciliation job the write path relies on: dual
// writes never roll back on partial failure, so a store that rejected a
// write stays stale until the next write of the same key or a repair run.
//
// Repair reads every record of cat from the source store and replays the
// batch through SaveMany, bringing both stores to the source's state with
// the same per-key failure isolation as any bulk save. Requires both stores
// ready; no retries.
func (c *Coordinator) Repair(ctx context.Context, cat models.Category, dir Direction) (BulkResult, error) {
	if !c.gate.Ready() {
		return BulkResult{Skipped: true}, store.ErrUnavailable
	}

	var (
		records map[string]models.Fields
		err     error
	)
	switch dir {
	case FastToDurable:
		records, err = c.fast.ReadAll(ctx, cat.Namespace)
	case DurableToFast:
		records, err = c.durable.ReadAllDocs(ctx, cat.Collection)
	default:
		return BulkResult{}, fmt.Errorf("unknown repair direction %q", dir)
	}
	if err != nil {
		return BulkResult{}, fmt.Errorf("read source store: %w", err)
	}

	c.log.Info().Str("category", cat.Name).Str("direction", string(dir)).
		Int("records", len(records)).Msg("repair run starting")
	return c.SaveMany(ctx, cat, records), nil
}
