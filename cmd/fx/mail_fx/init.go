package mail_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/services"
)

var Module = fx.Provide(provideMailService)

func provideMailService(cfg *config.Config, logger *zap.Logger) services.IMailService {
	return services.NewMailService(cfg.Mail, cfg.App.Name, logger)
}
