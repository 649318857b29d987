// Package surreal implements the durable document store contract on
// SurrealDB. Documents are written over the WebSocket RPC connection with
// the surrealcbor codec, which keeps record ids and timestamps in the
// binary format SurrealDB expects; change subscriptions ride on live
// queries.
package surreal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	surrealdb "github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/constants"
	smodels "github.com/surrealdb/surrealdb.go/pkg/models"
	"github.com/surrealdb/surrealdb.go/surrealcbor"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
)

// Config carries the connection parameters for one SurrealDB endpoint.
type Config struct {
	Endpoint  string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// Store is a DurableStore backed by one SurrealDB connection. The
// underlying client is safe for concurrent use; Store adds no locking of
// its own.
type Store struct {
	db  *surrealdb.DB
	log zerolog.Logger
}

var _ store.DurableStore = (*Store)(nil)

// New connects to SurrealDB and selects the configured namespace and
// database. The connection uses the surrealcbor codec: without it,
// time.Time and record id values round-trip incorrectly.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", cfg.Endpoint, err)
	}

	conf := connection.NewConfig(u)
	codec := surrealcbor.New()
	conf.Marshaler = codec
	conf.Unmarshaler = codec

	db, err := surrealdb.FromConnection(ctx, gorillaws.New(conf))
	if err != nil {
		return nil, fmt.Errorf("connect to surrealdb: %w", err)
	}

	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		return nil, fmt.Errorf("use %s/%s: %w", cfg.Namespace, cfg.Database, err)
	}

	return &Store{db: db, log: log}, nil
}

// Close closes the SurrealDB connection.
func (s *Store) Close() error {
	return s.db.Close(context.Background())
}

// isNotFound reports whether err is SurrealDB's way of saying the record
// does not exist.
func isNotFound(err error) bool {
	if errors.Is(err, constants.ErrNoRow) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Expected a single or multiple results but got 0") ||
		strings.Contains(msg, "cannot unmarshal array into Go value")
}

// stripID removes the record id SurrealDB injects into every selected
// document, so payloads round-trip as the caller wrote them.
func stripID(doc models.Fields) models.Fields {
	if doc == nil {
		return nil
	}
	delete(doc, "id")
	return doc
}

// docID extracts the plain string id from a selected document.
func docID(doc models.Fields) (string, bool) {
	switch id := doc["id"].(type) {
	case smodels.RecordID:
		return fmt.Sprint(id.ID), true
	case *smodels.RecordID:
		return fmt.Sprint(id.ID), true
	case string:
		return id, true
	default:
		return "", false
	}
}

// WriteDoc stores value as document id in collection, replacing any
// previous document.
func (s *Store) WriteDoc(ctx context.Context, collection, id string, value models.Fields) error {
	rid := smodels.NewRecordID(collection, id)
	if _, err := surrealdb.Upsert[models.Fields](ctx, s.db, rid, map[string]any(value)); err != nil {
		return &store.WriteError{Store: store.Durable, Key: collection + ":" + id, Err: err}
	}
	return nil
}

// ReadDoc returns document id from collection, or nil if absent.
func (s *Store) ReadDoc(ctx context.Context, collection, id string) (models.Fields, error) {
	rid := smodels.NewRecordID(collection, id)
	doc, err := surrealdb.Select[models.Fields](ctx, s.db, rid)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, &store.ReadError{Store: store.Durable, Key: collection + ":" + id, Err: err}
	}
	if doc == nil {
		return nil, nil
	}
	return stripID(*doc), nil
}

// ReadAllDocs returns every document in collection, keyed by id.
func (s *Store) ReadAllDocs(ctx context.Context, collection string) (map[string]models.Fields, error) {
	docs, err := surrealdb.Select[[]models.Fields](ctx, s.db, smodels.Table(collection))
	if err != nil {
		if isNotFound(err) {
			return map[string]models.Fields{}, nil
		}
		return nil, &store.ReadError{Store: store.Durable, Key: collection, Err: err}
	}

	out := make(map[string]models.Fields)
	if docs == nil {
		return out, nil
	}
	for _, doc := range *docs {
		id, ok := docID(doc)
		if !ok {
			s.log.Warn().Str("collection", collection).Msg("document without usable id, skipping")
			continue
		}
		out[id] = stripID(doc)
	}
	return out, nil
}

// allowedOps is the comparison operator allowlist for QueryWhere. Field
// names and operators are interpolated into the query text (SurrealQL
// cannot parameterize them), so both are validated; values always travel
// as query parameters.
var allowedOps = map[string]struct{}{
	"=": {}, "!=": {}, "<": {}, "<=": {}, ">": {}, ">=": {}, "CONTAINS": {},
}

func validField(field string) bool {
	if field == "" {
		return false
	}
	for _, r := range field {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// QueryWhere returns the documents in collection matching "field op value".
func (s *Store) QueryWhere(ctx context.Context, collection, field, op string, value any) ([]models.Fields, error) {
	if _, ok := allowedOps[op]; !ok {
		return nil, fmt.Errorf("operator %q not allowed", op)
	}
	if !validField(field) {
		return nil, fmt.Errorf("invalid field name %q", field)
	}

	query := fmt.Sprintf("SELECT * FROM type::table($tb) WHERE %s %s $value", field, op)
	params := map[string]any{
		"tb":    collection,
		"value": value,
	}
	result, err := surrealdb.Query[[]models.Fields](ctx, s.db, query, params)
	if err != nil {
		return nil, &store.ReadError{Store: store.Durable, Key: collection, Err: err}
	}

	var docs []models.Fields
	if result != nil && len(*result) > 0 {
		for _, doc := range (*result)[0].Result {
			docs = append(docs, stripID(doc))
		}
	}
	return docs, nil
}
