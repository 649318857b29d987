package surreal

import (
	"context"
	"fmt"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	smodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// liveQuery starts a live query on table and returns its id together with
// the notification channel. The channel closes when the query is killed.
func (s *Store) liveQuery(ctx context.Context, table string) (string, chan connection.Notification, error) {
	live, err := surrealdb.Live(ctx, s.db, smodels.Table(table), false)
	if err != nil {
		return "", nil, fmt.Errorf("start live query on %q: %w", table, err)
	}
	liveID := live.String()

	notifications, err := s.db.LiveNotifications(liveID)
	if err != nil {
		_ = surrealdb.Kill(ctx, s.db, liveID)
		return "", nil, fmt.Errorf("live notifications for %q: %w", table, err)
	}
	return liveID, notifications, nil
}

func (s *Store) kill(liveID string) {
	if err := surrealdb.Kill(context.Background(), s.db, liveID); err != nil {
		s.log.Warn().Err(err).Str("live_id", liveID).Msg("kill live query")
	}
}

// invoke runs a delivery callback, isolating panics so a misbehaving
// consumer cannot unwind into the SurrealDB client goroutine.
func (s *Store) invoke(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("subscription", what).Interface("panic", r).
				Msg("subscriber callback panicked")
		}
	}()
	fn()
}

// notifiedID extracts the record id string from a live notification result.
func notifiedID(result any) (string, bool) {
	record, ok := result.(map[string]any)
	if !ok {
		return "", false
	}
	switch id := record["id"].(type) {
	case smodels.RecordID:
		return fmt.Sprint(id.ID), true
	case *smodels.RecordID:
		return fmt.Sprint(id.ID), true
	default:
		return "", false
	}
}

// SubscribeDoc delivers document id's current state (absence included,
// reported explicitly), then a delivery on every change to it. Each
// delivery re-reads the document so the callback always observes the
// latest stored state rather than the notification payload.
func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, fn store.ValueFunc) (*store.Subscription, error) {
	liveID, notifications, err := s.liveQuery(ctx, collection)
	if err != nil {
		return nil, err
	}

	what := collection + ":" + id
	go func() {
		current, readErr := s.ReadDoc(context.Background(), collection, id)
		if readErr != nil {
			s.log.Warn().Err(readErr).Str("doc", what).Msg("initial read for doc subscription")
			current = nil
		}
		s.invoke(what, func() { fn(current, current != nil) })

		for notification := range notifications {
			notifiedFor, ok := notifiedID(notification.Result)
			if !ok || notifiedFor != id {
				continue
			}
			if notification.Action == connection.DeleteAction {
				s.invoke(what, func() { fn(nil, false) })
				continue
			}
			value, readErr := s.ReadDoc(context.Background(), collection, id)
			if readErr != nil {
				s.log.Warn().Err(readErr).Str("doc", what).Msg("re-read for doc subscription")
				continue
			}
			s.invoke(what, func() { fn(value, value != nil) })
		}
	}()

	return store.NewSubscription(func() { s.kill(liveID) }), nil
}

// SubscribeCollection delivers the full current set of documents in
// collection, then the full set again after every change. The initial
// delivery happens even when the collection is empty.
func (s *Store) SubscribeCollection(ctx context.Context, collection string, fn store.SetFunc) (*store.Subscription, error) {
	liveID, notifications, err := s.liveQuery(ctx, collection)
	if err != nil {
		return nil, err
	}

	snapshot := func() ([]models.Fields, error) {
		docs, readErr := s.ReadAllDocs(context.Background(), collection)
		if readErr != nil {
			return nil, readErr
		}
		records := make([]models.Fields, 0, len(docs))
		for _, doc := range docs {
			records = append(records, doc)
		}
		return records, nil
	}

	go func() {
		records, snapErr := snapshot()
		if snapErr != nil {
			s.log.Warn().Err(snapErr).Str("collection", collection).
				Msg("initial snapshot for collection subscription")
			records = nil
		}
		s.invoke(collection, func() { fn(records) })

		for range notifications {
			records, snapErr := snapshot()
			if snapErr != nil {
				s.log.Warn().Err(snapErr).Str("collection", collection).
					Msg("snapshot for collection subscription")
				continue
			}
			s.invoke(collection, func() { fn(records) })
		}
	}()

	return store.NewSubscription(func() { s.kill(liveID) }), nil
}
