// Package models defines the schema-less record payloads handled by the
// synchronization engine, the category descriptors that map each record kind
// onto both backing stores, and the key construction helpers.
//
// The engine never assumes payload structure beyond the top level: a record
// is an opaque bag of fields identified by a string key. The only fields the
// engine itself touches are "email" (durable-store predicate lookup) and
// "lastActiveTime" (high-frequency partial update on the fast store).
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Fields is a schema-less record payload. A nil Fields means "absent":
// reads return nil rather than an error when a key has no value in any
// store.
type Fields map[string]any

// Clone returns a shallow copy of f, or nil if f is nil. Adapters clone
// before handing payloads to subscribers so a consumer mutating the map
// cannot corrupt store-internal state.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Category describes where one kind of record lives in each store: a path
// namespace in the fast key-value store and a table in the durable document
// store.
type Category struct {
	// Name identifies the category in logs.
	Name string
	// Namespace prefixes every fast-store path for this category.
	Namespace string
	// Collection is the durable-store table holding this category.
	Collection string
}

// FastPath returns the fast-store path for key within this category.
func (c Category) FastPath(key string) string {
	return c.Namespace + "/" + key
}

var (
	// Users holds one record per user, keyed by user id.
	Users = Category{Name: "users", Namespace: "users", Collection: "users"}

	// Settings holds a single well-known record, keyed by SettingsKey.
	Settings = Category{Name: "settings", Namespace: "settings", Collection: "settings"}

	// Chapters holds chapter content records, keyed by chapter id.
	Chapters = Category{Name: "chapters", Namespace: "chapters", Collection: "chapters"}

	// QuizResults holds append-only quiz submissions, keyed per user by
	// QuizResultKey. Records in this category are never updated in place.
	QuizResults = Category{Name: "quiz_results", Namespace: "quiz_results", Collection: "quiz_results"}
)

// SettingsKey is the single key under which the Settings category stores
// its record.
const SettingsKey = "global"

// FieldLastActive is the user-record field holding the last activity
// timestamp, mutated independently of the rest of the payload.
const FieldLastActive = "lastActiveTime"

// FieldEmail is the user-record field the durable store indexes for
// email lookup.
const FieldEmail = "email"

// QuizResultKey builds a key for one quiz submission. Keys are unique per
// call: two submissions for the same quiz in the same nanosecond still get
// distinct keys thanks to the random suffix, so successive submissions
// never collide.
func QuizResultKey(quizID string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%s", quizID, now.UnixNano(), uuid.NewString()[:8])
}

// QuizResultDocID scopes a quiz-result key under its user for the durable
// store, which keeps all submissions in a single collection.
func QuizResultDocID(userID, resultKey string) string {
	return userID + ":" + resultKey
}
