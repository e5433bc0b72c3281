package analyzer_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"inos/internal/config"
	"inos/internal/services"
	"inos/pkg/metrics"
	"inos/pkg/utils"
)

var Module = fx.Provide(provideVisionClient, provideAnalyzer)

// provideVisionClient returns nil when no key is set or the client cannot be built.
// The analyzer then answers with simulated results.
func provideVisionClient(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) utils.VisionClientInterface {
	key := cfg.Analyzer.APIKey()
	if key == "" {
		logger.Warn("no analyzer API key, results will be simulated", zap.String("provider", cfg.Analyzer.Provider))
		return nil
	}

	client, err := utils.NewVisionClient(cfg.Analyzer.Provider, key, cfg.Analyzer.Model)
	if err != nil {
		logger.Error("vision client unavailable, results will be simulated", zap.Error(err))
		return nil
	}

	lc.Append(fx.StopHook(client.Close))
	logger.Info("vision client ready",
		zap.String("provider", cfg.Analyzer.Provider),
		zap.String("model", cfg.Analyzer.Model))
	return client
}

func provideAnalyzer(client utils.VisionClientInterface, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) services.AnalyzerServiceInterface {
	return services.NewAnalyzerService(client, cfg.Analyzer, logger, m)
}
