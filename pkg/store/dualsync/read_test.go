package dualsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

func TestGetPrefersFastStore(t *testing.T) {
	c, fast, durable := newTestCoordinator()

	fast.Seed("users/u1", models.Fields{"name": "fast"})
	durable.Seed("users", "u1", models.Fields{"name": "durable"})

	got := c.Get(context.Background(), models.Users, "u1")
	assert.Equal(t, "fast", got["name"])
}

func TestGetFallsBackToDurableOnMiss(t *testing.T) {
	c, _, durable := newTestCoordinator()

	durable.Seed("users", "u1", models.Fields{"name": "durable"})

	got := c.Get(context.Background(), models.Users, "u1")
	assert.Equal(t, "durable", got["name"])
}

func TestGetFallsBackToDurableOnFastReadError(t *testing.T) {
	c, fast, durable := newTestCoordinator()

	fast.Seed("users/u1", models.Fields{"name": "fast"})
	fast.FailReads = true
	durable.Seed("users", "u1", models.Fields{"name": "durable"})

	got := c.Get(context.Background(), models.Users, "u1")
	assert.Equal(t, "durable", got["name"])
}

func TestGetReturnsNilWhenAllStoresMiss(t *testing.T) {
	c, _, _ := newTestCoordinator()
	assert.Nil(t, c.Get(context.Background(), models.Users, "missing"))
}

func TestGetReturnsNilOnDurableErrorAfterFastMiss(t *testing.T) {
	c, _, durable := newTestCoordinator()
	durable.Seed("users", "u1", models.Fields{"name": "durable"})
	durable.FailReads = true

	assert.Nil(t, c.Get(context.Background(), models.Users, "u1"))
}

func TestGetSkipsUnreadyFastStore(t *testing.T) {
	c, fast, durable := newTestCoordinator()
	c.Gate().MarkUnready(store.Fast)

	fast.Seed("users/u1", models.Fields{"name": "fast"})
	durable.Seed("users", "u1", models.Fields{"name": "durable"})

	got := c.Get(context.Background(), models.Users, "u1")
	assert.Equal(t, "durable", got["name"])
}

func TestGetWhereQueriesDurableOnly(t *testing.T) {
	c, fast, durable := newTestCoordinator()

	// Present only in the fast store: predicate lookup must not find it.
	fast.Seed("users/u1", models.Fields{"email": "ada@example.com"})
	assert.Nil(t, c.GetWhere(context.Background(), models.Users, "email", "ada@example.com"))

	durable.Seed("users", "u2", models.Fields{"email": "ada@example.com", "name": "Ada"})
	got := c.GetWhere(context.Background(), models.Users, "email", "ada@example.com")
	assert.Equal(t, "Ada", got["name"])
}

func TestGetWhereUnreadyDurableReadsAsAbsent(t *testing.T) {
	c, _, durable := newTestCoordinator()
	durable.Seed("users", "u1", models.Fields{"email": "a@b"})
	c.Gate().MarkUnready(store.Durable)

	assert.Nil(t, c.GetWhere(context.Background(), models.Users, "email", "a@b"))
}
