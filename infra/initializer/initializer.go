// Package initializer builds the application dependency graph from
// configuration.
package initializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/eventoolkit/infra/repository/journal"
	"github.com/amirasaad/eventoolkit/infra/transport"
	"github.com/amirasaad/eventoolkit/infra/transport/kafka"
	"github.com/amirasaad/eventoolkit/infra/transport/redis"
	"github.com/amirasaad/eventoolkit/infra/transport/websocket"
	"github.com/amirasaad/eventoolkit/pkg/bridge"
	"github.com/amirasaad/eventoolkit/pkg/config"
	"github.com/amirasaad/eventoolkit/pkg/domain/room"
	"github.com/amirasaad/eventoolkit/pkg/eventbus"
	"github.com/amirasaad/eventoolkit/pkg/factory"
	journalhandler "github.com/amirasaad/eventoolkit/pkg/handler/journal"
	roomhandler "github.com/amirasaad/eventoolkit/pkg/handler/room"
	"github.com/amirasaad/eventoolkit/pkg/observer"
	"github.com/amirasaad/eventoolkit/pkg/store"
)

// ErrNoConfig is returned when a nil configuration is passed.
var ErrNoConfig = errors.New("initializer: configuration is nil")

// InitializeDependencies initializes all the application dependencies. The
// returned cleanup releases the database connection; it must be called after
// the observer was stopped.
func InitializeDependencies(cfg *config.App) (deps *config.Deps, cleanup func(), err error) {
	if cfg == nil {
		return nil, nil, ErrNoConfig
	}
	logger := NewLogger(cfg.Log, nil)
	cleanup = func() {}

	var repo journal.Repository
	if cfg.Journal != nil && cfg.Journal.Enabled && cfg.DB != nil {
		db, err := journal.Open(cfg.DB.Url, cfg.DB.SQLitePath, cfg.Env)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open journal database: %w", err)
		}
		cleanup = func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		repo = journal.New(db)
		logger.Info("📝 Event journal enabled", "postgres", cfg.DB.Url != "")
	}

	deps, err = NewDeps(cfg, logger, repo)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return deps, cleanup, nil
}

// NewDeps wires the publisher, the factory, the room store, the observer and
// the input bridge. repo may be nil to run without a journal.
func NewDeps(cfg *config.App, logger *slog.Logger, repo journal.Repository) (*config.Deps, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	publisher := eventbus.NewPublisher(eventbus.WithLogger(logger))

	registry := factory.NewRegistry()
	if err := room.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register room events: %w", err)
	}

	roomStore := store.New(room.State{}, room.Reduce, logger)
	var after []roomhandler.SideEffect
	if repo != nil {
		appender := journalhandler.AppenderFunc(func(ctx context.Context, eventType string, payload []byte) error {
			_, err := repo.Append(ctx, eventType, payload)
			return err
		})
		after = append(after, journalhandler.New(registry, appender, logger).Record)
	}
	handlers := roomhandler.Handlers(roomStore, logger, after...)

	obs := observer.New(publisher, handlers...)
	if err := obs.Observe(); err != nil {
		obs.Stop()
		return nil, fmt.Errorf("failed to subscribe handlers: %w", err)
	}
	logger.Info("✅ Handlers subscribed", "handlers", len(handlers), "event_types", registry.Names())

	return &config.Deps{
		Publisher: publisher,
		Registry:  registry,
		Bridge:    bridge.New(registry, publisher, bridge.WithLogger(logger)),
		Observer:  obs,
		Room:      roomStore,
		Journal:   repo,
		Logger:    logger,
		Config:    cfg,
	}, nil
}

// Sources creates a source for every configured transport, all feeding deps.Bridge.
// The returned cleanup closes the clients the sources were built on.
func Sources(ctx context.Context, deps *config.Deps) (sources []transport.Source, cleanup func(), err error) {
	var closers []func() error
	cleanup = func() {
		for _, c := range closers {
			_ = c()
		}
	}
	if deps.Config == nil || deps.Config.Transport == nil {
		return nil, cleanup, nil
	}
	tc := deps.Config.Transport
	logger := deps.Logger

	if ws := tc.WebSocket; ws != nil && ws.URL != "" {
		sources = append(sources, websocket.New(ws.URL, deps.Bridge,
			websocket.WithBackoff(ws.MinBackoff, ws.MaxBackoff),
			websocket.WithLogger(logger),
		))
	}

	if rc := tc.Redis; rc != nil && rc.URL != "" {
		client, err := redis.Dial(ctx, rc.URL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, client.Close)
		consumer, err := redis.New(client, redis.Config{
			Stream:    rc.Stream,
			Group:     rc.Group,
			Consumer:  rc.Consumer,
			DLQStream: rc.DLQStream,
			Block:     rc.Block,
		}, deps.Bridge, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		sources = append(sources, consumer)
	}

	if kc := tc.Kafka; kc != nil && len(kc.Brokers) > 0 {
		reader, err := kafka.NewReader(kafka.Config{
			Brokers:      kc.Brokers,
			Topic:        kc.Topic,
			GroupID:      kc.GroupID,
			SASLUsername: kc.SASLUsername,
			SASLPassword: kc.SASLPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		// The consumer closes the reader when it stops.
		sources = append(sources, kafka.New(reader, deps.Bridge, logger))
	}

	if len(sources) == 0 {
		logger.Warn("No transport configured; events arrive over HTTP only")
	}
	return sources, cleanup, nil
}
