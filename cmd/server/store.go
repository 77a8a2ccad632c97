package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/ssovk/pkg/config"
	"github.com/dmitrymomot/ssovk/pkg/kvstore"
	"github.com/dmitrymomot/ssovk/pkg/kvstore/mongostore"
	"github.com/dmitrymomot/ssovk/pkg/kvstore/pgstore"
	"github.com/dmitrymomot/ssovk/pkg/kvstore/redisstore"
	"github.com/dmitrymomot/ssovk/pkg/kvstore/sqlitestore"
	"github.com/dmitrymomot/ssovk/pkg/logger"
)

// backend is an opened key/object store with its readiness check.
type backend struct {
	kvstore.Store
	healthcheck func(context.Context) error
	close       func()
}

func openStore(ctx context.Context, kind string, log *slog.Logger) (*backend, error) {
	switch kind {
	case "", "memory":
		log.WarnContext(ctx, "using in-memory store, data is lost on restart")
		m := kvstore.NewMemory()
		return &backend{Store: m, healthcheck: m.Healthcheck, close: func() {}}, nil

	case "redis":
		var cfg redisstore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := redisstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s := redisstore.New(client)
		return &backend{Store: s, healthcheck: s.Healthcheck, close: func() {
			if err := client.Close(); err != nil {
				log.Error("failed to close redis client", logger.Error(err))
			}
		}}, nil

	case "mongo":
		var cfg mongostore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := mongostore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s := mongostore.New(client.Database(cfg.Database))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &backend{Store: s, healthcheck: s.Healthcheck, close: func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Error("failed to disconnect mongo client", logger.Error(err))
			}
		}}, nil

	case "postgres":
		var cfg pgstore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pgstore.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool, log); err != nil {
			pool.Close()
			return nil, err
		}
		s := pgstore.New(pool)
		return &backend{Store: s, healthcheck: s.Healthcheck, close: pool.Close}, nil

	case "sqlite":
		var cfg sqlitestore.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		s, err := sqlitestore.Open(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		return &backend{Store: s, healthcheck: s.Healthcheck, close: func() {
			if err := s.Close(); err != nil {
				log.Error("failed to close sqlite store", logger.Error(err))
			}
		}}, nil

	default:
		return nil, fmt.Errorf("unknown KV_BACKEND %q: want memory, redis, mongo, postgres or sqlite", kind)
	}
}
