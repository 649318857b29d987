package dualsync

import (
	"context"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// Outcome classifies how a dual write went.
type Outcome string

const (
	// OutcomeSkipped means at least one store was unready, so nothing was
	// attempted.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeSuccess means both stores accepted the write.
	OutcomeSuccess Outcome = "success"
	// OutcomePartial means exactly one store accepted the write; the
	// other is stale until a later write or a repair run.
	OutcomePartial Outcome = "partial_failure"
	// OutcomeTotal means both stores rejected the write.
	OutcomeTotal Outcome = "total_failure"
)

// SaveResult reports the per-store result of one dual write.
type SaveResult struct {
	Skipped    bool
	FastErr    error
	DurableErr error
}

// Outcome collapses the per-store errors into a single classification.
func (r SaveResult) Outcome() Outcome {
	switch {
	case r.Skipped:
		return OutcomeSkipped
	case r.FastErr == nil && r.DurableErr == nil:
		return OutcomeSuccess
	case r.FastErr != nil && r.DurableErr != nil:
		return OutcomeTotal
	default:
		return OutcomePartial
	}
}

// FailedStore names the store that failed on a partial outcome, or "" for
// any other outcome.
func (r SaveResult) FailedStore() store.ID {
	if r.Outcome() != OutcomePartial {
		return ""
	}
	if r.FastErr != nil {
		return store.Fast
	}
	return store.Durable
}

// Save writes payload under key to both stores. The fast store is written
// and awaited first: it has the lower latency, so a reader arriving right
// after the call is more likely to see fresh data. Each store's failure is
// captured and logged independently; a fast-store failure does not stop the
// durable write from being attempted, and vice versa. No rollback happens
// on partial failure.
//
// An unready store counts as that store's write failing with
// store.ErrUnavailable while the sibling is still attempted; only when
// both stores are unready is the call a no-op returning a skipped result.
func (c *Coordinator) Save(ctx context.Context, cat models.Category, key string, payload models.Fields) SaveResult {
	fastReady := c.gate.StoreReady(store.Fast)
	durableReady := c.gate.StoreReady(store.Durable)
	if !fastReady && !durableReady {
		c.log.Warn().Str("category", cat.Name).Str("key", key).Msg("save skipped, both stores unready")
		return SaveResult{Skipped: true}
	}

	var result SaveResult

	if !fastReady {
		result.FastErr = store.ErrUnavailable
	} else if err := c.fast.Write(ctx, cat.FastPath(key), payload); err != nil {
		result.FastErr = err
		c.log.Error().Err(err).Str("category", cat.Name).Str("key", key).Msg("fast store write failed")
	}

	if !durableReady {
		result.DurableErr = store.ErrUnavailable
	} else if err := c.durable.WriteDoc(ctx, cat.Collection, key, payload); err != nil {
		result.DurableErr = err
		c.log.Error().Err(err).Str("category", cat.Name).Str("key", key).Msg("durable store write failed")
	}

	return result
}

// Touch shallow-merges partial into the fast-store record only. This is
// the path for high-frequency fields like activity timestamps: the durable
// store is deliberately not written on every call, trading staleness there
// for write-amplification avoidance.
//
// Requires only the fast store to be ready. Since only one store is
// involved the outcome is skipped, success, or total failure.
func (c *Coordinator) Touch(ctx context.Context, cat models.Category, key string, partial models.Fields) Outcome {
	if !c.gate.StoreReady(store.Fast) {
		return OutcomeSkipped
	}

	if err := c.fast.UpdateFields(ctx, cat.FastPath(key), partial); err != nil {
		c.log.Error().Err(err).Str("category", cat.Name).Str("key", key).Msg("fast store update failed")
		return OutcomeTotal
	}
	return OutcomeSuccess
}
