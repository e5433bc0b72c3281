package db_fx

import (
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/infra"
	"inos/internal/infra/supabase"
	"inos/internal/repositories"
)

var Module = fx.Provide(provideRemote)

// Remote is the configured remote side. Both fields are nil in local-only mode,
// and Supabase is nil when the direct Postgres backend is used.
type Remote struct {
	fx.Out

	Backend  *repositories.Backend
	Supabase *supabase.Client
}

func provideRemote(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (Remote, error) {
	switch {
	case cfg.Backend.SupabaseConfigured():
		client, err := supabase.New(supabase.Config{
			URL:            cfg.Backend.SupabaseURL,
			AnonKey:        cfg.Backend.AnonKey,
			ServiceRoleKey: cfg.Backend.ServiceRoleKey,
			Bucket:         cfg.Backend.Bucket,
		})
		if err != nil {
			return Remote{}, err
		}
		if !client.AdminConfigured() {
			logger.Warn("no service role key, photo uploads will fail")
		}
		logger.Info("remote backend: supabase")
		return Remote{Backend: repositories.NewSupabaseBackend(client), Supabase: client}, nil

	case cfg.Backend.PostgresConfigured():
		db, err := infra.InitPostgresql(cfg.Backend.PostgresURL, logger)
		if err != nil {
			return Remote{}, err
		}
		if err := repositories.Migrate(db); err != nil {
			infra.ClosePostgresql(db, logger)
			return Remote{}, fmt.Errorf("migrate remote schema: %w", err)
		}
		lc.Append(fx.StopHook(func() {
			infra.ClosePostgresql(db, logger)
		}))
		logger.Info("remote backend: postgres")
		return Remote{Backend: repositories.NewGormBackend(db)}, nil

	case cfg.Backend.Driver == "postgres":
		return Remote{}, errors.New("backend.driver is postgres but no postgres_url is set")
	}

	logger.Warn("no remote backend configured, running local-only")
	return Remote{}, nil
}
