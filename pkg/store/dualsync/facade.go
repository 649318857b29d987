package dualsync

import (
	"context"
	"time"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// The methods below are the engine's consumer-facing surface: thin
// category bindings over Save, Get, Subscribe and SaveMany. Writes return
// fire-and-forget outcomes, reads return the payload or nil; raw backend
// errors never reach callers.

// SaveUser writes a user record to both stores.
func (c *Coordinator) SaveUser(ctx context.Context, userID string, user models.Fields) SaveResult {
	return c.Save(ctx, models.Users, userID, user)
}

// GetUserByID reads a user record, fast store first.
func (c *Coordinator) GetUserByID(ctx context.Context, userID string) models.Fields {
	return c.Get(ctx, models.Users, userID)
}

// GetUserByEmail looks a user up by email. Only the durable store can run
// predicate queries, so it is queried exclusively.
func (c *Coordinator) GetUserByEmail(ctx context.Context, email string) models.Fields {
	return c.GetWhere(ctx, models.Users, models.FieldEmail, email)
}

// SubscribeUsers delivers the full user set on every change.
func (c *Coordinator) SubscribeUsers(ctx context.Context, fn store.SetFunc) *store.Subscription {
	return c.SubscribeCollection(ctx, models.Users, fn)
}

// TouchUserActivity stamps the user's last-activity time on the fast store
// only.
func (c *Coordinator) TouchUserActivity(ctx context.Context, userID string) Outcome {
	return c.Touch(ctx, models.Users, userID, models.Fields{
		models.FieldLastActive: time.Now().UTC(),
	})
}

// SaveSettings writes the single settings record to both stores.
func (c *Coordinator) SaveSettings(ctx context.Context, settings models.Fields) SaveResult {
	return c.Save(ctx, models.Settings, models.SettingsKey, settings)
}

// SubscribeSettings delivers the settings record on every change.
func (c *Coordinator) SubscribeSettings(ctx context.Context, fn store.ValueFunc) *store.Subscription {
	return c.SubscribeDoc(ctx, models.Settings, models.SettingsKey, fn)
}

// SaveContentOne writes one chapter record to both stores.
func (c *Coordinator) SaveContentOne(ctx context.Context, chapterID string, data models.Fields) SaveResult {
	return c.Save(ctx, models.Chapters, chapterID, data)
}

// SaveContentBulk fans a batch of chapter records out to both stores with
// per-key failure isolation.
func (c *Coordinator) SaveContentBulk(ctx context.Context, chapters map[string]models.Fields) BulkResult {
	return c.SaveMany(ctx, models.Chapters, chapters)
}

// GetContent reads one chapter record, fast store first.
func (c *Coordinator) GetContent(ctx context.Context, chapterID string) models.Fields {
	return c.Get(ctx, models.Chapters, chapterID)
}

// SubscribeContent delivers one chapter record on every change.
func (c *Coordinator) SubscribeContent(ctx context.Context, chapterID string, fn store.ValueFunc) *store.Subscription {
	return c.SubscribeDoc(ctx, models.Chapters, chapterID, fn)
}

// RecordQuizResult appends one quiz submission under userID. The key is
// generated fresh on every call, so rapid successive submissions for the
// same quiz store distinct records. Returns the generated key alongside
// the write result.
func (c *Coordinator) RecordQuizResult(ctx context.Context, userID, quizID string, attempt models.Fields) (string, SaveResult) {
	key := models.QuizResultDocID(userID, models.QuizResultKey(quizID, time.Now()))
	return key, c.Save(ctx, models.QuizResults, key, attempt)
}
