// Package boltkv implements the fast key-value store contract on an
// embedded BoltDB file. Payloads are CBOR-encoded; change notifications are
// fanned out by an in-process hub that publishes after every committed
// write, so subscribers observe only durable state.
package boltkv

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

const bucketName = "records"

// decMode decodes CBOR maps into map[string]any so payloads round-trip as
// models.Fields at every nesting level.
var decMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]any(nil)),
}.DecMode()

// Store is a FastStore backed by a single BoltDB file with one bucket.
//
// Concurrency: all exported methods are safe for concurrent use. Writes run
// inside a Bolt update transaction; the hub publishes only after the
// transaction commits.
type Store struct {
	db     *bolt.DB
	bucket []byte
	hub    *hub
	log    zerolog.Logger
}

var _ store.FastStore = (*Store)(nil)

// Open opens (creating if needed) the BoltDB file at path.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt file %q: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists([]byte(bucketName))
		return bucketErr
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &Store{
		db:     db,
		bucket: []byte(bucketName),
		hub:    newHub(log),
		log:    log,
	}, nil
}

// Close closes the underlying BoltDB handle. Outstanding subscriptions stop
// receiving deliveries but remain safe to cancel.
func (s *Store) Close() error {
	s.hub.closeAll()
	return s.db.Close()
}

func encode(value models.Fields) ([]byte, error) {
	raw, err := cbor.Marshal(map[string]any(value))
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}

func decode(raw []byte) (models.Fields, error) {
	var out map[string]any
	if err := decMode.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return models.Fields(out), nil
}

// Write stores value at path, replacing any previous value, then notifies
// subscribers on that path.
func (s *Store) Write(ctx context.Context, path string, value models.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := encode(value)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(path), raw)
	})
	if err != nil {
		return &store.WriteError{Store: store.Fast, Key: path, Err: err}
	}

	s.hub.publish(path, value.Clone(), true)
	return nil
}

// ReadOnce returns the value at path, or nil if absent.
func (s *Store) ReadOnce(ctx context.Context, path string) (models.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(s.bucket).Get([]byte(path)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, &store.ReadError{Store: store.Fast, Key: path, Err: err}
	}
	if raw == nil {
		return nil, nil
	}

	value, err := decode(raw)
	if err != nil {
		// Malformed data reads as absent; the caller falls back to the
		// sibling store.
		return nil, &store.ReadError{Store: store.Fast, Key: path, Err: err}
	}
	return value, nil
}

// UpdateFields shallow-merges partial into the record at path inside one
// transaction. The record is created when absent.
func (s *Store) UpdateFields(ctx context.Context, path string, partial models.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var merged models.Fields
	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)

		current := models.Fields{}
		if raw := bucket.Get([]byte(path)); raw != nil {
			decoded, decodeErr := decode(raw)
			if decodeErr != nil {
				return decodeErr
			}
			current = decoded
		}

		for k, v := range partial {
			current[k] = v
		}
		merged = current

		raw, encodeErr := encode(current)
		if encodeErr != nil {
			return encodeErr
		}
		return bucket.Put([]byte(path), raw)
	})
	if err != nil {
		return &store.WriteError{Store: store.Fast, Key: path, Err: err}
	}

	s.hub.publish(path, merged.Clone(), true)
	return nil
}

// BulkWrite stores every entry of values in a single transaction: either
// all entries commit or none do. Subscribers on each written path are
// notified after the commit.
func (s *Store) BulkWrite(ctx context.Context, values map[string]models.Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded := make(map[string][]byte, len(values))
	for path, value := range values {
		raw, err := encode(value)
		if err != nil {
			return &store.WriteError{Store: store.Fast, Key: path, Err: err}
		}
		encoded[path] = raw
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(s.bucket)
		for path, raw := range encoded {
			if putErr := bucket.Put([]byte(path), raw); putErr != nil {
				return fmt.Errorf("put %q: %w", path, putErr)
			}
		}
		return nil
	})
	if err != nil {
		return &store.WriteError{Store: store.Fast, Key: "bulk", Err: err}
	}

	for path, value := range values {
		s.hub.publish(path, value.Clone(), true)
	}
	return nil
}

// ReadAll returns every record under prefix, keyed by the path remainder.
func (s *Store) ReadAll(ctx context.Context, prefix string) (map[string]models.Fields, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scan := prefix
	if scan != "" && !strings.HasSuffix(scan, "/") {
		scan += "/"
	}

	out := make(map[string]models.Fields)
	var decodeErr error
	err := s.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(s.bucket).Cursor()
		for k, v := cursor.Seek([]byte(scan)); k != nil && strings.HasPrefix(string(k), scan); k, v = cursor.Next() {
			value, err := decode(v)
			if err != nil {
				decodeErr = err
				continue
			}
			out[strings.TrimPrefix(string(k), scan)] = value
		}
		return nil
	})
	if err != nil {
		return nil, &store.ReadError{Store: store.Fast, Key: prefix, Err: err}
	}
	if decodeErr != nil && len(out) == 0 {
		return nil, &store.ReadError{Store: store.Fast, Key: prefix, Err: decodeErr}
	}
	return out, nil
}

// SubscribeValue delivers the current value at path, then a delivery on
// every subsequent committed write to it.
func (s *Store) SubscribeValue(path string, fn store.ValueFunc) (*store.Subscription, error) {
	return s.subscribe(path, fn, false)
}

// SubscribeValueOnce delivers exactly one snapshot of path and auto-cancels.
func (s *Store) SubscribeValueOnce(path string, fn store.ValueFunc) (*store.Subscription, error) {
	return s.subscribe(path, fn, true)
}

func (s *Store) subscribe(path string, fn store.ValueFunc, once bool) (*store.Subscription, error) {
	current, err := s.ReadOnce(context.Background(), path)
	if err != nil {
		var readErr *store.ReadError
		if !errors.As(err, &readErr) {
			return nil, err
		}
		// Malformed current state still gets an initial delivery, as
		// absence.
		current = nil
	}

	sub := s.hub.add(path, fn, once)
	sub.push(event{value: current, ok: current != nil})
	return store.NewSubscription(func() { s.hub.remove(path, sub.id) }), nil
}
