// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background work, then closes backends in reverse order of
// ConnectDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if bg := deps.bg; bg != nil {
		if bg.reconciler != nil {
			bg.reconciler.Stop()
		}
		if bg.memLimiter != nil {
			bg.memLimiter.Close()
		}
	}

	var errs []error
	if deps.Publisher != nil {
		if err := deps.Publisher.Close(); err != nil {
			logger.Error("AMQP close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Error("Redis close failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
