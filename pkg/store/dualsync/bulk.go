package dualsync

import (
	"context"
	"sync"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// BulkResult reports the outcome of one SaveMany call per store. The fast
// store is written in a single bulk call, so it has one error covering all
// keys; the durable store is written per key, so failures are isolated per
// key.
type BulkResult struct {
	Skipped bool
	Total   int

	// FastErr is the error of the single fast-store bulk write, nil on
	// success.
	FastErr error

	// DurableErrs maps each failed key to its durable-store write error.
	DurableErrs map[string]error
}

// DurableFailed returns the number of keys the durable store rejected.
func (r BulkResult) DurableFailed() int { return len(r.DurableErrs) }

// DurableSucceeded returns the number of keys the durable store accepted.
func (r BulkResult) DurableSucceeded() int { return r.Total - len(r.DurableErrs) }

// FastSucceeded returns the number of keys the fast store accepted: the
// bulk write is all-or-nothing, so this is Total or zero.
func (r BulkResult) FastSucceeded() int {
	if r.Skipped || r.FastErr != nil {
		return 0
	}
	return r.Total
}

// SaveMany fans updates out to both stores: one store-native bulk write to
// the fast store, and one individual durable-store write per key. The
// durable writes are dispatched concurrently alongside the bulk write and
// all completions are awaited jointly. A fast-store bulk failure does not
// cancel or block the durable writes, and one key failing on the durable
// store does not affect any other key.
//
// Fan-out is unbounded: bulk saves are operator-triggered, not
// request-scale. No retries happen here; retry policy belongs to the
// caller.
func (c *Coordinator) SaveMany(ctx context.Context, cat models.Category, updates map[string]models.Fields) BulkResult {
	fastReady := c.gate.StoreReady(store.Fast)
	durableReady := c.gate.StoreReady(store.Durable)
	if !fastReady && !durableReady {
		c.log.Warn().Str("category", cat.Name).Int("keys", len(updates)).
			Msg("bulk save skipped, both stores unready")
		return BulkResult{Skipped: true, Total: len(updates)}
	}

	result := BulkResult{
		Total:       len(updates),
		DurableErrs: make(map[string]error),
	}
	if len(updates) == 0 {
		return result
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	if !fastReady {
		result.FastErr = store.ErrUnavailable
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()

			paths := make(map[string]models.Fields, len(updates))
			for key, payload := range updates {
				paths[cat.FastPath(key)] = payload
			}
			if err := c.fast.BulkWrite(ctx, paths); err != nil {
				mu.Lock()
				result.FastErr = err
				mu.Unlock()
				c.log.Error().Err(err).Str("category", cat.Name).Int("keys", len(updates)).
					Msg("fast store bulk write failed")
			}
		}()
	}

	for key, payload := range updates {
		if !durableReady {
			result.DurableErrs[key] = store.ErrUnavailable
			continue
		}
		wg.Add(1)
		go func(key string, payload models.Fields) {
			defer wg.Done()

			if err := c.durable.WriteDoc(ctx, cat.Collection, key, payload); err != nil {
				mu.Lock()
				result.DurableErrs[key] = err
				mu.Unlock()
				c.log.Error().Err(err).Str("category", cat.Name).Str("key", key).
					Msg("durable store write failed")
			}
		}(key, payload)
	}

	wg.Wait()
	return result
}
