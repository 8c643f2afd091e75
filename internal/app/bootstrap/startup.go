// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/washhub/internal/app/system/ratelimit"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/washhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// redeemKeyPrefix namespaces redemption counters in Redis.
const redeemKeyPrefix = "washhub:redeem:"

// Startup runs one-time initialization after DB connections and schema
// setup: it applies configured timeouts, picks the redemption rate
// limiter and starts the reconciler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	bg := deps.bg
	if deps.Redis != nil {
		bg.limiter = ratelimit.NewRedis(deps.Redis, redeemKeyPrefix, appCfg.RedeemRateLimit, appCfg.RedeemRateWindow)
	} else {
		bg.memLimiter = ratelimit.New(appCfg.RedeemRateLimit, appCfg.RedeemRateWindow)
		bg.limiter = bg.memLimiter
	}

	bg.reconciler = workers.NewReconciler(deps.MongoDatabase, logger, appCfg.ReconcileInterval, appCfg.OrphanGrace)
	bg.reconciler.Start()

	logger.Info("washhub started",
		zap.Bool("redis_rate_limit", deps.Redis != nil),
		zap.Duration("reconcile_interval", appCfg.ReconcileInterval))
	return nil
}
