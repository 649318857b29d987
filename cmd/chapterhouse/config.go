package main

import (
	"context"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"

	"github.com/chapterhouse/chapterhouse/pkg/models"
	"github.com/chapterhouse/chapterhouse/pkg/store"
	"github.com/chapterhouse/chapterhouse/pkg/store/boltkv"
	"github.com/chapterhouse/chapterhouse/pkg/store/dualsync"
	"github.com/chapterhouse/chapterhouse/pkg/store/surreal"
)

// config holds the backend endpoints, parsed from the environment.
type config struct {
	BoltPath string `env:"CHAPTERHOUSE_BOLT_PATH" envDefault:"chapterhouse.db"`

	SurrealEndpoint  string `env:"CHAPTERHOUSE_SURREAL_ENDPOINT" envDefault:"ws://localhost:8000/rpc"`
	SurrealNamespace string `env:"CHAPTERHOUSE_SURREAL_NS" envDefault:"chapterhouse"`
	SurrealDatabase  string `env:"CHAPTERHOUSE_SURREAL_DB" envDefault:"chapterhouse"`
	SurrealUser      string `env:"CHAPTERHOUSE_SURREAL_USER"`
	SurrealPass      string `env:"CHAPTERHOUSE_SURREAL_PASS"`
}

// connect builds the coordinator from the environment. A backend that fails
// to initialize is logged and left unready on the gate rather than aborting:
// the engine degrades per store, and the commands report skipped work.
func connect(ctx context.Context, log zerolog.Logger) (*dualsync.Coordinator, func(), error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return nil, nil, fmt.Errorf("parse environment: %w", err)
	}

	gate := dualsync.NewHealthGate()
	var closers []func()

	var fast store.FastStore
	if kv, err := boltkv.Open(cfg.BoltPath, log); err != nil {
		log.Error().Err(err).Str("path", cfg.BoltPath).Msg("fast store unavailable")
	} else {
		fast = kv
		gate.MarkReady(store.Fast)
		closers = append(closers, func() { _ = kv.Close() })
	}

	var durable store.DurableStore
	sdb, err := surreal.New(ctx, surreal.Config{
		Endpoint:  cfg.SurrealEndpoint,
		Namespace: cfg.SurrealNamespace,
		Database:  cfg.SurrealDatabase,
		Username:  cfg.SurrealUser,
		Password:  cfg.SurrealPass,
	}, log)
	if err != nil {
		log.Error().Err(err).Str("endpoint", cfg.SurrealEndpoint).Msg("durable store unavailable")
	} else {
		durable = sdb
		gate.MarkReady(store.Durable)
		closers = append(closers, func() { _ = sdb.Close() })
	}

	cleanup := func() {
		for _, fn := range closers {
			fn()
		}
	}
	return dualsync.New(fast, durable, gate, log), cleanup, nil
}

// categoryByName maps a CLI argument to its category descriptor.
func categoryByName(name string) (models.Category, error) {
	for _, cat := range []models.Category{models.Users, models.Settings, models.Chapters, models.QuizResults} {
		if cat.Name == name {
			return cat, nil
		}
	}
	return models.Category{}, fmt.Errorf("unknown category %q", name)
}
