package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"inos/cmd/fx/account_fx"
	"inos/cmd/fx/analyzer_fx"
	"inos/cmd/fx/config_fx"
	"inos/cmd/fx/controllers_fx"
	"inos/cmd/fx/db_fx"
	"inos/cmd/fx/mail_fx"
	"inos/cmd/fx/memcache_fx"
	"inos/cmd/fx/store_fx"
	"inos/cmd/fx/sync_fx"
	"inos/internal/api/controllers"
	"inos/internal/config"
	"inos/internal/services"
	"inos/pkg/metrics"
	"inos/pkg/middleware"
)

func main() {
	// A missing .env is fine, the environment may already be set.
	_ = godotenv.Load()

	app := fx.New(
		config_fx.Module,
		store_fx.Module,
		db_fx.Module,
		memcache_fx.Module,
		mail_fx.Module,
		analyzer_fx.Module,
		sync_fx.Module,
		account_fx.Module,
		controllers_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(StartServer),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			go func() {
				logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			ctx, cancel := context.WithTimeout(ctx, cfg.App.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})
}

type RouterParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Sessions services.SessionServiceInterface

	State   *controllers.StateController
	Scan    *controllers.ScanController
	Shop    *controllers.ShopController
	Account *controllers.AccountController
	Profile *controllers.ProfileController
}

func ProvideRouter(p RouterParams) *gin.Engine {
	if p.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.TraceIDMiddleware())
	r.Use(middleware.RequestLogger(p.Logger.Named("http")))
	r.Use(middleware.Recovery(p.Logger))
	r.Use(cors.New(corsConfig(p.Config.App.CORSOrigins)))

	RegisterRoutes(r, Handlers{
		State:   p.State,
		Scan:    p.Scan,
		Shop:    p.Shop,
		Account: p.Account,
		Profile: p.Profile,
	}, p.Sessions, p.Metrics)

	return r
}
