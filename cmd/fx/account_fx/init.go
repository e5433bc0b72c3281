package account_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/infra/supabase"
	"inos/internal/services"
	"inos/internal/store"
	mem "inos/pkg/memcache"
)

var Module = fx.Provide(
	provideSessionService, provideOtpService, provideAuthService)

func provideSessionService(
	lc fx.Lifecycle,
	storage store.Storage,
	client *supabase.Client,
	cfg *config.Config,
	logger *zap.Logger,
) (services.SessionServiceInterface, error) {
	var refresher services.TokenRefresher
	if client != nil {
		refresher = client
	}

	sessions, err := services.NewSessionService(storage, refresher, cfg.Session, cfg.Backend.JWTSecret, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := sessions.Restore(ctx); err != nil {
				logger.Warn("session restore failed, starting signed out", zap.Error(err))
			}
			return sessions.Start()
		},
		OnStop: func(context.Context) error {
			sessions.Stop()
			return nil
		},
	})
	return sessions, nil
}

func provideOtpService(codes mem.CodeStore, mail services.IMailService, cfg *config.Config, logger *zap.Logger) services.OtpServiceInterface {
	return services.NewOtpService(codes, mail, cfg.OTP, logger)
}

func provideAuthService(
	client *supabase.Client,
	otp services.OtpServiceInterface,
	sessions services.SessionServiceInterface,
	st *store.Store,
	coordinator services.SyncServiceInterface,
	logger *zap.Logger,
) services.AuthServiceInterface {
	var backend services.AuthBackend
	if client != nil {
		backend = client
	}
	return services.NewAuthService(backend, otp, sessions, st, coordinator, logger)
}
