// Package store defines the uniform contracts the synchronization engine
// requires from its two backing stores, the typed errors adapters return,
// and the cancellable subscription handle shared by every subscribe call.
//
// Two adapter implementations exist: boltkv (fast embedded key-value store)
// and surreal (durable document store with predicate queries). The engine in
// the dualsync package is written against these interfaces only, which is
// also what makes its failure paths testable with the storetest fakes.
package store

import (
	"context"

	"github.com/chapterhouse/chapterhouse/pkg/models"
)

// ID names one of the two backing stores.
type ID string

const (
	// Fast is the low-latency key-value store. No predicate queries.
	Fast ID = "fast"
	// Durable is the document store. System of record for listing and
	// filtering operations.
	Durable ID = "durable"
)

// ValueFunc receives document-level deliveries. ok reports whether the
// value exists; value is nil when ok is false.
type ValueFunc func(value models.Fields, ok bool)

// SetFunc receives collection-level deliveries: the full current set of
// records each time it changes. An empty (or nil) slice is a valid
// delivery meaning the collection is empty.
type SetFunc func(records []models.Fields)

// FastStore is the contract over the low-latency key-value store.
//
// Reads return a nil Fields for absent keys, never an error: "not found"
// is an expected outcome, not a failure. All methods are safe for
// concurrent use.
type FastStore interface {
	// Write stores value at path, replacing any previous value.
	Write(ctx context.Context, path string, value models.Fields) error

	// ReadOnce returns the value at path, or nil if absent.
	ReadOnce(ctx context.Context, path string) (models.Fields, error)

	// UpdateFields shallow-merges partial into the record at path,
	// creating the record if absent. Fields not named in partial are
	// left untouched.
	UpdateFields(ctx context.Context, path string, partial models.Fields) error

	// BulkWrite stores every entry of values in a single store-native
	// multi-key write. Either all entries commit or none do.
	BulkWrite(ctx context.Context, values map[string]models.Fields) error

	// ReadAll returns every record whose path starts with prefix,
	// keyed by the path remainder after the prefix.
	ReadAll(ctx context.Context, prefix string) (map[string]models.Fields, error)

	// SubscribeValue delivers the current value at path once, then a
	// delivery on every subsequent change.
	SubscribeValue(path string, fn ValueFunc) (*Subscription, error)

	// SubscribeValueOnce delivers exactly one snapshot of path and then
	// auto-cancels.
	SubscribeValueOnce(path string, fn ValueFunc) (*Subscription, error)
}

// DurableStore is the contract over the document store.
type DurableStore interface {
	// WriteDoc stores value as document id in collection, replacing any
	// previous document.
	WriteDoc(ctx context.Context, collection, id string, value models.Fields) error

	// ReadDoc returns document id from collection, or nil if absent.
	ReadDoc(ctx context.Context, collection, id string) (models.Fields, error)

	// ReadAllDocs returns every document in collection, keyed by id.
	ReadAllDocs(ctx context.Context, collection string) (map[string]models.Fields, error)

	// QueryWhere returns the documents in collection matching
	// "field op value". op must be one of the comparison operators the
	// adapter allows; anything else is an error.
	QueryWhere(ctx context.Context, collection, field, op string, value any) ([]models.Fields, error)

	// SubscribeDoc delivers document id's current state once (absence is
	// reported explicitly, not silently), then on every change.
	SubscribeDoc(ctx context.Context, collection, id string, fn ValueFunc) (*Subscription, error)

	// SubscribeCollection delivers the full current set of documents in
	// collection once, then again on every change.
	SubscribeCollection(ctx context.Context, collection string, fn SetFunc) (*Subscription, error)
}
