package dualsync

import (
	"context"
	"sync"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// SubscribeCollection maintains a live subscription on the durable store
// for every record in cat. Non-empty snapshots are delivered as they
// arrive. If the very first snapshot is empty, exactly one fallback
// one-shot read against the fast store is made and its result delivered,
// even if that result is also empty: this covers the window where the
// durable store has not yet been backfilled. Later snapshots are delivered
// as-is, empty or not, and the fallback never fires again for the lifetime
// of the subscription.
//
// If the durable store is unready the returned handle is inert: Cancel is
// a no-op and fn is never invoked.
func (c *Coordinator) SubscribeCollection(ctx context.Context, cat models.Category, fn store.SetFunc) *store.Subscription {
	if !c.gate.StoreReady(store.Durable) {
		c.log.Warn().Str("category", cat.Name).Msg("collection subscription skipped, durable store unready")
		return store.Inert()
	}

	var (
		mu    sync.Mutex
		first = true
	)
	sub, err := c.durable.SubscribeCollection(ctx, cat.Collection, func(records []models.Fields) {
		mu.Lock()
		wasFirst := first
		first = false
		mu.Unlock()

		if len(records) > 0 || !wasFirst {
			fn(records)
			return
		}

		// First snapshot was empty: one-shot fallback to the fast store,
		// delivered even when it is empty too.
		fn(c.fastCollectionSnapshot(ctx, cat))
	})
	if err != nil {
		c.log.Error().Err(err).Str("category", cat.Name).Msg("collection subscription failed")
		return store.Inert()
	}
	return sub
}

func (c *Coordinator) fastCollectionSnapshot(ctx context.Context, cat models.Category) []models.Fields {
	if !c.gate.StoreReady(store.Fast) {
		return nil
	}
	values, err := c.fast.ReadAll(ctx, cat.Namespace)
	if err != nil {
		c.log.Warn().Err(err).Str("category", cat.Name).Msg("fast store fallback read failed")
		return nil
	}
	records := make([]models.Fields, 0, len(values))
	for _, value := range values {
		records = append(records, value)
	}
	return records
}

// SubscribeDoc maintains a live subscription on the fast store for one
// record. Whenever the fast store reports the record present, that value is
// delivered. Whenever it reports absence, a one-shot read against the
// durable store is made and the durable value delivered if present. This
// happens on every absent delivery, not just the first.
//
// If the fast store is unready the returned handle is inert.
func (c *Coordinator) SubscribeDoc(ctx context.Context, cat models.Category, key string, fn store.ValueFunc) *store.Subscription {
	if !c.gate.StoreReady(store.Fast) {
		c.log.Warn().Str("category", cat.Name).Str("key", key).
			Msg("document subscription skipped, fast store unready")
		return store.Inert()
	}

	sub, err := c.fast.SubscribeValue(cat.FastPath(key), func(value models.Fields, ok bool) {
		if ok {
			fn(value, true)
			return
		}
		if fallback := c.durableDocSnapshot(ctx, cat, key); fallback != nil {
			fn(fallback, true)
		}
	})
	if err != nil {
		c.log.Error().Err(err).Str("category", cat.Name).Str("key", key).
			Msg("document subscription failed")
		return store.Inert()
	}
	return sub
}

func (c *Coordinator) durableDocSnapshot(ctx context.Context, cat models.Category, key string) models.Fields {
	if !c.gate.StoreReady(store.Durable) {
		return nil
	}
	value, err := c.durable.ReadDoc(ctx, cat.Collection, key)
	if err != nil {
		c.log.Warn().Err(err).Str("category", cat.Name).Str("key", key).
			Msg("durable store fallback read failed")
		return nil
	}
	return value
}
