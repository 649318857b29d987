package dualsync

import (
	"context"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// Get reads key, trying the fast store first and falling back to the
// durable store. A read error counts the same as "not found" and triggers
// the fallback; when every store misses, Get returns nil. This is the
// migration-safe read path: data written only to one store is still
// visible through the other.
//
// Nothing is cached across calls; every Get re-queries live state.
func (c *Coordinator) Get(ctx context.Context, cat models.Category, key string) models.Fields {
	if c.gate.StoreReady(store.Fast) {
		value, err := c.fast.ReadOnce(ctx, cat.FastPath(key))
		if err != nil {
			c.log.Warn().Err(err).Str("category", cat.Name).Str("key", key).
				Msg("fast store read failed, falling back")
		} else if value != nil {
			return value
		}
	}

	if c.gate.StoreReady(store.Durable) {
		value, err := c.durable.ReadDoc(ctx, cat.Collection, key)
		if err != nil {
			c.log.Warn().Err(err).Str("category", cat.Name).Str("key", key).
				Msg("durable store read failed")
			return nil
		}
		return value
	}

	return nil
}

// GetWhere reads the first record in cat matching "field = value". Only
// the durable store supports predicate queries, so there is no fallback:
// an unready durable store or a query failure reads as absence.
func (c *Coordinator) GetWhere(ctx context.Context, cat models.Category, field string, value any) models.Fields {
	if !c.gate.StoreReady(store.Durable) {
		return nil
	}

	docs, err := c.durable.QueryWhere(ctx, cat.Collection, field, "=", value)
	if err != nil {
		c.log.Warn().Err(err).Str("category", cat.Name).Str("field", field).
			Msg("durable store query failed")
		return nil
	}
	if len(docs) == 0 {
		return nil
	}
	return docs[0]
}
