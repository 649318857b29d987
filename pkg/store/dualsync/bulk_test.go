package dualsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

func TestSaveManyWritesBothStores(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	ctx := context.Background()

	result := c.SaveMany(ctx, models.Chapters, map[string]models.Fields{
		"ch1": {"title": "One"},
		"ch2": {"title": "Two"},
	})

	require.Equal(t, 2, result.Total)
	assert.NoError(t, result.FastErr)
	assert.Equal(t, 2, result.FastSucceeded())
	assert.Equal(t, 2, result.DurableSucceeded())
	assert.Zero(t, result.DurableFailed())

	assert.Equal(t, "One", fast.Value("chapters/ch1")["title"])
	assert.Equal(t, "Two", durable.Doc("chapters", "ch2")["title"])
}

func TestSaveManyIsolatesPerKeyDurableFailures(t *testing.T) {
	c, _, durable := newTestCoordinator()
	durable.FailKeys = map[string]bool{"ch2": true}
	ctx := context.Background()

	result := c.SaveMany(ctx, models.Chapters, map[string]models.Fields{
		"ch1": {"title": "One"},
		"ch2": {"title": "Two"},
	})

	require.Equal(t, 1, result.DurableFailed())
	assert.Error(t, result.DurableErrs["ch2"])
	assert.Equal(t, 1, result.DurableSucceeded())
	assert.Equal(t, 2, result.FastSucceeded())

	// Both keys remain readable: ch1 from either store, ch2 via the fast
	// store.
	assert.Equal(t, "One", c.Get(ctx, models.Chapters, "ch1")["title"])
	assert.Equal(t, "Two", c.Get(ctx, models.Chapters, "ch2")["title"])
}

func TestSaveManyFastBulkFailureDoesNotBlockDurableWrites(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	fast.FailWrites = true
	ctx := context.Background()

	result := c.SaveMany(ctx, models.Chapters, map[string]models.Fields{
		"ch1": {"title": "One"},
		"ch2": {"title": "Two"},
	})

	assert.Error(t, result.FastErr)
	assert.Zero(t, result.FastSucceeded())
	assert.Equal(t, 2, result.DurableSucceeded())
	assert.Equal(t, "One", durable.Doc("chapters", "ch1")["title"])
}

func TestSaveManyDurableUnreadyMarksEveryKey(t *testing.T) {
	c, fast, _ := newTestCoordinator()
	c.Gate().MarkUnready(store.Durable)
	ctx := context.Background()

	result := c.SaveMany(ctx, models.Chapters, map[string]models.Fields{
		"ch1": {"title": "One"},
		"ch2": {"title": "Two"},
	})

	assert.Equal(t, 2, result.DurableFailed())
	assert.Equal(t, 2, result.FastSucceeded())
	assert.Equal(t, "One", fast.Value("chapters/ch1")["title"])
}

func TestSaveManyBothUnreadyIsSkipped(t *testing.T) {
	c, _, _ := newTestCoordinator()
	c.Gate().MarkUnready(store.Fast)
	c.Gate().MarkUnready(store.Durable)

	result := c.SaveMany(context.Background(), models.Chapters, map[string]models.Fields{
		"ch1": {"title": "One"},
	})
	assert.True(t, result.Skipped)
}

func TestSaveManyEmptyBatch(t *testing.T) {
	c, _, _ := newTestCoordinator()
	result := c.SaveMany(context.Background(), models.Chapters, nil)
	assert.Zero(t, result.Total)
	assert.NoError(t, result.FastErr)
}
