package dualsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

func TestSubscribeCollectionDeliversNonEmptySnapshots(t *testing.T) {
	c, _, durable := newTestCoordinator()

	var deliveries [][]models.Fields
	sub := c.SubscribeCollection(context.Background(), models.Users, func(records []models.Fields) {
		deliveries = append(deliveries, records)
	})
	defer sub.Cancel()

	durable.EmitCollection("users", []models.Fields{{"name": "Ada"}})
	durable.EmitCollection("users", []models.Fields{{"name": "Ada"}, {"name": "Grace"}})

	require.Len(t, deliveries, 2)
	assert.Len(t, deliveries[0], 1)
	assert.Len(t, deliveries[1], 2)
}

func TestSubscribeCollectionEmptyFirstSnapshotFallsBackOnce(t *testing.T) {
	c, fast, durable := newTestCoordinator()

	// Durable store not yet backfilled; fast store holds the data.
	fast.Seed("users/u1", models.Fields{"name": "Ada"})
	fast.Seed("users/u2", models.Fields{"name": "Grace"})

	var deliveries [][]models.Fields
	sub := c.SubscribeCollection(context.Background(), models.Users, func(records []models.Fields) {
		deliveries = append(deliveries, records)
	})
	defer sub.Cancel()

	durable.EmitCollection("users", nil)

	require.Len(t, deliveries, 1)
	assert.Len(t, deliveries[0], 2, "fallback snapshot should carry the fast store records")

	// Later empty snapshots are delivered as-is; the fallback never fires
	// again.
	durable.EmitCollection("users", nil)
	require.Len(t, deliveries, 2)
	assert.Empty(t, deliveries[1])
}

func TestSubscribeCollectionEmptyFallbackDeliveredEvenWhenFastEmpty(t *testing.T) {
	c, _, durable := newTestCoordinator()

	var deliveries [][]models.Fields
	sub := c.SubscribeCollection(context.Background(), models.Users, func(records []models.Fields) {
		deliveries = append(deliveries, records)
	})
	defer sub.Cancel()

	durable.EmitCollection("users", nil)

	// Both stores empty: the fallback still delivers, with an empty set.
	require.Len(t, deliveries, 1)
	assert.Empty(t, deliveries[0])
}

func TestSubscribeCollectionNonEmptyFirstSnapshotNeverFallsBack(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	fast.Seed("users/u9", models.Fields{"name": "stale"})

	var deliveries [][]models.Fields
	sub := c.SubscribeCollection(context.Background(), models.Users, func(records []models.Fields) {
		deliveries = append(deliveries, records)
	})
	defer sub.Cancel()

	durable.EmitCollection("users", []models.Fields{{"name": "Ada"}})
	durable.EmitCollection("users", nil)

	require.Len(t, deliveries, 2)
	assert.Len(t, deliveries[0], 1)
	assert.Empty(t, deliveries[1], "later empty snapshots pass through unchanged")
}

func TestSubscribeCollectionUnreadyDurableReturnsInertHandle(t *testing.T) {
	c, _, durable := newTestCoordinator()
	c.Gate().MarkUnready(store.Durable)

	called := false
	sub := c.SubscribeCollection(context.Background(), models.Users, func([]models.Fields) {
		called = true
	})

	assert.Zero(t, durable.CollectionSubscribers("users"))
	assert.False(t, called)
	sub.Cancel()
	sub.Cancel() // idempotent
}

func TestSubscribeDocDeliversFastValues(t *testing.T) {
	c, fast, _ := newTestCoordinator()
	fast.Seed("chapters/ch1", models.Fields{"title": "One"})

	var titles []any
	sub := c.SubscribeDoc(context.Background(), models.Chapters, "ch1", func(value models.Fields, ok bool) {
		require.True(t, ok)
		titles = append(titles, value["title"])
	})
	defer sub.Cancel()

	// Initial delivery, then one per change.
	fast.Push("chapters/ch1", models.Fields{"title": "One, revised"}, true)

	assert.Equal(t, []any{"One", "One, revised"}, titles)
}

func TestSubscribeDocAbsentFallsBackToDurableEveryTime(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	durable.Seed("chapters", "ch1", models.Fields{"title": "durable copy"})

	var deliveries []models.Fields
	sub := c.SubscribeDoc(context.Background(), models.Chapters, "ch1", func(value models.Fields, ok bool) {
		require.True(t, ok)
		deliveries = append(deliveries, value)
	})
	defer sub.Cancel()

	// Initial state is absent on the fast store: durable fallback fires.
	require.Len(t, deliveries, 1)
	assert.Equal(t, "durable copy", deliveries[0]["title"])

	// Unlike collections, the fallback repeats on every absent delivery.
	fast.Push("chapters/ch1", nil, false)
	fast.Push("chapters/ch1", nil, false)
	assert.Len(t, deliveries, 3)
}

func TestSubscribeDocBothAbsentDeliversNothing(t *testing.T) {
	c, fast, _ := newTestCoordinator()

	called := 0
	sub := c.SubscribeDoc(context.Background(), models.Chapters, "ch1", func(models.Fields, bool) {
		called++
	})
	defer sub.Cancel()

	fast.Push("chapters/ch1", nil, false)
	assert.Zero(t, called)
}

func TestSubscribeDocCancelDetachesAndIsIdempotent(t *testing.T) {
	c, fast, _ := newTestCoordinator()
	fast.Seed("chapters/ch1", models.Fields{"title": "One"})

	count := 0
	sub := c.SubscribeDoc(context.Background(), models.Chapters, "ch1", func(models.Fields, bool) {
		count++
	})
	require.Equal(t, 1, count)
	require.Equal(t, 1, fast.SubscriberCount("chapters/ch1"))

	sub.Cancel()
	sub.Cancel()
	assert.Zero(t, fast.SubscriberCount("chapters/ch1"))

	fast.Push("chapters/ch1", models.Fields{"title": "Two"}, true)
	assert.Equal(t, 1, count, "no delivery after cancel")
}

func TestSubscribeDocUnreadyFastReturnsInertHandle(t *testing.T) {
	c, fast, _ := newTestCoordinator()
	c.Gate().MarkUnready(store.Fast)

	called := false
	sub := c.SubscribeDoc(context.Background(), models.Chapters, "ch1", func(models.Fields, bool) {
		called = true
	})

	assert.False(t, called)
	assert.Zero(t, fast.SubscriberCount("chapters/ch1"))
	sub.Cancel()
	sub.Cancel()
}
