package sync_fx

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"inos/internal/repositories"
	"inos/internal/services"
	"inos/internal/store"
	"inos/pkg/metrics"
)

var Module = fx.Provide(
	services.NewCatalogService,
	provideSync,
	provideCart,
)

// provideSync waits for in-flight remote writes on shutdown.
func provideSync(
	lc fx.Lifecycle,
	st *store.Store,
	catalog services.CatalogServiceInterface,
	backend *repositories.Backend,
	sessions services.SessionServiceInterface,
	logger *zap.Logger,
	m *metrics.Metrics,
) services.SyncServiceInterface {
	coordinator := services.NewSyncService(st, catalog, backend, sessions, logger, m)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			done := make(chan struct{})
			go func() {
				coordinator.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				logger.Warn("background sync still running at shutdown")
				return ctx.Err()
			}
		},
	})
	return coordinator
}

func provideCart(st *store.Store, catalog services.CatalogServiceInterface, coordinator services.SyncServiceInterface) services.CartServiceInterface {
	return services.NewCartService(st, catalog, coordinator)
}
