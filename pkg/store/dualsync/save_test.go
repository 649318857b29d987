package dualsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

func TestSaveWritesBothStores(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	ctx := context.Background()

	payload := models.Fields{"name": "Ada", "email": "ada@example.com"}
	result := c.Save(ctx, models.Users, "u1", payload)

	require.Equal(t, OutcomeSuccess, result.Outcome())
	assert.Equal(t, payload, fast.Value("users/u1"))
	assert.Equal(t, payload, durable.Doc("users", "u1"))

	assert.Equal(t, payload, c.Get(ctx, models.Users, "u1"))
}

func TestSaveFastUnreadyIsPartialWithFallbackRead(t *testing.T) {
	c, _, durable := newTestCoordinator()
	c.Gate().MarkUnready(store.Fast)
	ctx := context.Background()

	payload := models.Fields{"name": "Ada"}
	result := c.Save(ctx, models.Users, "u1", payload)

	require.Equal(t, OutcomePartial, result.Outcome())
	assert.Equal(t, store.Fast, result.FailedStore())
	assert.True(t, errors.Is(result.FastErr, store.ErrUnavailable))
	assert.Equal(t, payload, durable.Doc("users", "u1"))

	// The durable store still serves the read through fallback.
	assert.Equal(t, payload, c.Get(ctx, models.Users, "u1"))
}

func TestSaveDurableFailureDoesNotStopFastWrite(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	durable.FailWrites = true
	ctx := context.Background()

	payload := models.Fields{"title": "Chapter One"}
	result := c.Save(ctx, models.Chapters, "ch1", payload)

	require.Equal(t, OutcomePartial, result.Outcome())
	assert.Equal(t, store.Durable, result.FailedStore())
	assert.Equal(t, payload, fast.Value("chapters/ch1"))
	assert.Nil(t, durable.Doc("chapters", "ch1"))
}

func TestSaveFastFailureDoesNotStopDurableWrite(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	fast.FailWrites = true
	ctx := context.Background()

	payload := models.Fields{"title": "Chapter One"}
	result := c.Save(ctx, models.Chapters, "ch1", payload)

	require.Equal(t, OutcomePartial, result.Outcome())
	assert.Equal(t, store.Fast, result.FailedStore())
	assert.Equal(t, payload, durable.Doc("chapters", "ch1"))
}

func TestSaveBothFailIsTotal(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	fast.FailWrites = true
	durable.FailWrites = true

	result := c.Save(context.Background(), models.Users, "u1", models.Fields{"a": 1})

	assert.Equal(t, OutcomeTotal, result.Outcome())
	assert.Equal(t, store.ID(""), result.FailedStore())
}

func TestSaveBothUnreadyIsSkipped(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	c.Gate().MarkUnready(store.Fast)
	c.Gate().MarkUnready(store.Durable)

	result := c.Save(context.Background(), models.Users, "u1", models.Fields{"a": 1})

	assert.Equal(t, OutcomeSkipped, result.Outcome())
	assert.Nil(t, fast.Value("users/u1"))
	assert.Nil(t, durable.Doc("users", "u1"))
}

func TestTouchMergesIntoFastStoreOnly(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	ctx := context.Background()

	c.Save(ctx, models.Users, "u1", models.Fields{"name": "Ada", "email": "ada@example.com"})
	outcome := c.Touch(ctx, models.Users, "u1", models.Fields{models.FieldLastActive: "2026-08-29"})

	require.Equal(t, OutcomeSuccess, outcome)
	got := fast.Value("users/u1")
	assert.Equal(t, "Ada", got["name"])
	assert.Equal(t, "2026-08-29", got[models.FieldLastActive])

	// The durable store is deliberately stale for this field.
	_, stale := durable.Doc("users", "u1")[models.FieldLastActive]
	assert.False(t, stale)
}

func TestTouchSkippedWhenFastUnready(t *testing.T) {
	c, _, _ := newTestCoordinator()
	c.Gate().MarkUnready(store.Fast)

	outcome := c.Touch(context.Background(), models.Users, "u1", models.Fields{"x": 1})
	assert.Equal(t, OutcomeSkipped, outcome)
}
