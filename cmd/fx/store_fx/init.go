package store_fx

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/infra"
	"inos/internal/store"
	"inos/pkg/metrics"
)

var Module = fx.Provide(provideStorage, provideStore)

// provideStorage opens the backend of the local state blob selected by storage.driver.
func provideStorage(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (store.Storage, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("state is kept in memory and lost on restart")
		return store.NewMemoryStorage(), nil

	case "file":
		return infra.NewFileStorage(cfg.Storage.Dir)

	case "redis":
		client, err := infra.NewRedisClient(context.Background(), cfg.Storage.RedisURL)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(func() error {
			return client.Close()
		}))
		return infra.NewRedisStorage(client, "inos:"), nil

	case "postgres":
		db, err := infra.InitPostgresql(cfg.Storage.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(func() {
			infra.ClosePostgresql(db, logger)
		}))
		return infra.NewPostgresStorage(db)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func provideStore(lc fx.Lifecycle, storage store.Storage, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *store.Store {
	st := store.New(storage,
		store.WithKey(cfg.Storage.Key),
		store.WithMaxBytes(cfg.Storage.MaxBytes),
		store.WithPersistTimeout(cfg.Storage.PersistTimeout),
		store.WithLogger(logger),
		store.WithMetrics(m),
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return st.Hydrate(ctx)
		},
	})
	return st
}
