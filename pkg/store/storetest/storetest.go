// Package storetest provides in-memory fakes of both store contracts with
// failure injection and manually driven subscription deliveries, for
// exercising the engine's partial-failure and fallback paths without either
// backend running.
package storetest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// ErrInjected is the error returned by operations armed to fail.
var ErrInjected = errors.New("injected failure")

// FakeFast is an in-memory FastStore. Deliveries to subscribers happen
// synchronously, which keeps tests deterministic.
type FakeFast struct {
	mu   sync.Mutex
	data map[string]models.Fields

	// FailWrites makes Write, UpdateFields and BulkWrite fail.
	FailWrites bool
	// FailReads makes ReadOnce and ReadAll fail.
	FailReads bool

	subs   map[string]map[int]store.ValueFunc
	nextID int
}

var _ store.FastStore = (*FakeFast)(nil)

func NewFakeFast() *FakeFast {
	return &FakeFast{
		data: make(map[string]models.Fields),
		subs: make(map[string]map[int]store.ValueFunc),
	}
}

func (f *FakeFast) subscribers(path string) []store.ValueFunc {
	fns := make([]store.ValueFunc, 0, len(f.subs[path]))
	for _, fn := range f.subs[path] {
		fns = append(fns, fn)
	}
	return fns
}

// Seed stores value at path without notifying subscribers.
func (f *FakeFast) Seed(path string, value models.Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[path] = value.Clone()
}

// Value returns the currently stored value at path.
func (f *FakeFast) Value(path string) models.Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[path].Clone()
}

func (f *FakeFast) Write(_ context.Context, path string, value models.Fields) error {
	if f.FailWrites {
		return &store.WriteError{Store: store.Fast, Key: path, Err: ErrInjected}
	}
	f.mu.Lock()
	f.data[path] = value.Clone()
	fns := f.subscribers(path)
	f.mu.Unlock()

	for _, fn := range fns {
		fn(value.Clone(), true)
	}
	return nil
}

func (f *FakeFast) ReadOnce(_ context.Context, path string) (models.Fields, error) {
	if f.FailReads {
		return nil, &store.ReadError{Store: store.Fast, Key: path, Err: ErrInjected}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[path].Clone(), nil
}

func (f *FakeFast) UpdateFields(_ context.Context, path string, partial models.Fields) error {
	if f.FailWrites {
		return &store.WriteError{Store: store.Fast, Key: path, Err: ErrInjected}
	}
	f.mu.Lock()
	current := f.data[path]
	if current == nil {
		current = models.Fields{}
	} else {
		current = current.Clone()
	}
	for k, v := range partial {
		current[k] = v
	}
	f.data[path] = current
	fns := f.subscribers(path)
	f.mu.Unlock()

	for _, fn := range fns {
		fn(current.Clone(), true)
	}
	return nil
}

func (f *FakeFast) BulkWrite(_ context.Context, values map[string]models.Fields) error {
	if f.FailWrites {
		return &store.WriteError{Store: store.Fast, Key: "bulk", Err: ErrInjected}
	}
	f.mu.Lock()
	for path, value := range values {
		f.data[path] = value.Clone()
	}
	f.mu.Unlock()
	return nil
}

func (f *FakeFast) ReadAll(_ context.Context, prefix string) (map[string]models.Fields, error) {
	if f.FailReads {
		return nil, &store.ReadError{Store: store.Fast, Key: prefix, Err: ErrInjected}
	}
	scan := prefix
	if scan != "" && !strings.HasSuffix(scan, "/") {
		scan += "/"
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.Fields)
	for path, value := range f.data {
		if strings.HasPrefix(path, scan) {
			out[strings.TrimPrefix(path, scan)] = value.Clone()
		}
	}
	return out, nil
}

func (f *FakeFast) SubscribeValue(path string, fn store.ValueFunc) (*store.Subscription, error) {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.subs[path] == nil {
		f.subs[path] = make(map[int]store.ValueFunc)
	}
	f.subs[path][id] = fn
	current := f.data[path].Clone()
	f.mu.Unlock()

	fn(current, current != nil)
	return store.NewSubscription(func() { f.unsubscribe(path, id) }), nil
}

func (f *FakeFast) SubscribeValueOnce(path string, fn store.ValueFunc) (*store.Subscription, error) {
	f.mu.Lock()
	current := f.data[path].Clone()
	f.mu.Unlock()

	fn(current, current != nil)
	return store.Inert(), nil
}

func (f *FakeFast) unsubscribe(path string, id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[path], id)
}

// SubscriberCount returns how many subscribers path has.
func (f *FakeFast) SubscriberCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[path])
}

// Push delivers a value (or absence) to every subscriber on path, without
// touching stored data. Tests use it to simulate store-side changes.
func (f *FakeFast) Push(path string, value models.Fields, ok bool) {
	f.mu.Lock()
	fns := f.subscribers(path)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(value, ok)
	}
}

// FakeDurable is an in-memory DurableStore. Collection and document
// subscriptions deliver nothing on their own; tests drive them with
// EmitCollection and EmitDoc, including the initial snapshot.
type FakeDurable struct {
	mu   sync.Mutex
	data map[string]map[string]models.Fields // collection -> id -> doc

	// FailWrites makes WriteDoc fail, either for every key or only for
	// the keys named in FailKeys.
	FailWrites bool
	FailKeys   map[string]bool
	// FailReads makes ReadDoc, ReadAllDocs and QueryWhere fail.
	FailReads bool

	collectionSubs map[string][]store.SetFunc
	docSubs        map[string][]store.ValueFunc

	// WriteCount tracks successful WriteDoc calls, for asserting fan-out.
	WriteCount int
}

var _ store.DurableStore = (*FakeDurable)(nil)

func NewFakeDurable() *FakeDurable {
	return &FakeDurable{
		data:           make(map[string]map[string]models.Fields),
		collectionSubs: make(map[string][]store.SetFunc),
		docSubs:        make(map[string][]store.ValueFunc),
	}
}

// Seed stores doc without notifying subscribers.
func (f *FakeDurable) Seed(collection, id string, doc models.Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[collection] == nil {
		f.data[collection] = make(map[string]models.Fields)
	}
	f.data[collection][id] = doc.Clone()
}

// Doc returns the currently stored document.
func (f *FakeDurable) Doc(collection, id string) models.Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[collection][id].Clone()
}

func (f *FakeDurable) WriteDoc(_ context.Context, collection, id string, value models.Fields) error {
	if f.FailWrites || f.FailKeys[id] {
		return &store.WriteError{Store: store.Durable, Key: collection + ":" + id, Err: ErrInjected}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[collection] == nil {
		f.data[collection] = make(map[string]models.Fields)
	}
	f.data[collection][id] = value.Clone()
	f.WriteCount++
	return nil
}

func (f *FakeDurable) ReadDoc(_ context.Context, collection, id string) (models.Fields, error) {
	if f.FailReads {
		return nil, &store.ReadError{Store: store.Durable, Key: collection + ":" + id, Err: ErrInjected}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[collection][id].Clone(), nil
}

func (f *FakeDurable) ReadAllDocs(_ context.Context, collection string) (map[string]models.Fields, error) {
	if f.FailReads {
		return nil, &store.ReadError{Store: store.Durable, Key: collection, Err: ErrInjected}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.Fields)
	for id, doc := range f.data[collection] {
		out[id] = doc.Clone()
	}
	return out, nil
}

func (f *FakeDurable) QueryWhere(_ context.Context, collection, field, op string, value any) ([]models.Fields, error) {
	if f.FailReads {
		return nil, &store.ReadError{Store: store.Durable, Key: collection, Err: ErrInjected}
	}
	if op != "=" {
		return nil, errors.New("fake supports only =")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Fields
	for _, doc := range f.data[collection] {
		if doc[field] == value {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

func (f *FakeDurable) SubscribeDoc(_ context.Context, collection, id string, fn store.ValueFunc) (*store.Subscription, error) {
	key := collection + ":" + id
	f.mu.Lock()
	f.docSubs[key] = append(f.docSubs[key], fn)
	f.mu.Unlock()
	return store.NewSubscription(func() {}), nil
}

func (f *FakeDurable) SubscribeCollection(_ context.Context, collection string, fn store.SetFunc) (*store.Subscription, error) {
	f.mu.Lock()
	f.collectionSubs[collection] = append(f.collectionSubs[collection], fn)
	f.mu.Unlock()
	return store.NewSubscription(func() {}), nil
}

// EmitCollection delivers a snapshot to every collection subscriber.
func (f *FakeDurable) EmitCollection(collection string, records []models.Fields) {
	f.mu.Lock()
	fns := append([]store.SetFunc(nil), f.collectionSubs[collection]...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(records)
	}
}

// EmitDoc delivers a document state to every document subscriber.
func (f *FakeDurable) EmitDoc(collection, id string, value models.Fields, ok bool) {
	key := collection + ":" + id
	f.mu.Lock()
	fns := append([]store.ValueFunc(nil), f.docSubs[key]...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(value, ok)
	}
}

// CollectionSubscribers returns how many subscribers collection has.
func (f *FakeDurable) CollectionSubscribers(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collectionSubs[collection])
}
