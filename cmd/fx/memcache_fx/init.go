package memcache_fx

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	mem "inos/pkg/memcache"
)

var Module = fx.Provide(provideOTPCodes)

// provideOTPCodes also sweeps expired codes every few minutes so abandoned sign-ins do not pile up.
func provideOTPCodes(lc fx.Lifecycle, logger *zap.Logger) (mem.CodeStore, error) {
	codes := mem.NewOTPCodes()

	c := cron.New()
	if _, err := c.AddFunc("@every 5m", func() {
		if n := codes.Sweep(); n > 0 {
			logger.Debug("expired otp codes swept", zap.Int("count", n))
		}
	}); err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			<-c.Stop().Done()
			return nil
		},
	})
	return codes, nil
}
