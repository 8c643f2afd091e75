// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/washhub/internal/app/system/events"
	"github.com/dalemusser/washhub/internal/app/system/indexes"
	"github.com/dalemusser/washhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB connects MongoDB and the optional backends.
//
// MongoDB is required. Redis and RabbitMQ are optional: a Redis that does
// not answer is logged and skipped (the limiter falls back to in-process),
// while a configured broker that cannot be reached fails startup so audit
// events are not silently dropped.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: client.Database(appCfg.MongoDatabase),
		Publisher:     events.Nop{},
		bg:            &background{},
	}

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, using in-process rate limiting",
				zap.String("addr", appCfg.RedisAddr), zap.Error(err))
			_ = rdb.Close()
		} else {
			deps.Redis = rdb
			logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
		}
	}

	if appCfg.AMQPURL != "" {
		pub, err := events.DialAMQP(appCfg.AMQPURL, appCfg.AMQPQueue)
		if err != nil {
			if deps.Redis != nil {
				_ = deps.Redis.Close()
			}
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("connect amqp: %w", err)
		}
		deps.Publisher = pub
		logger.Info("connected to RabbitMQ", zap.String("queue", appCfg.AMQPQueue))
	}

	return deps, nil
}

// EnsureSchema creates the indexes every store relies on.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase, logger); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
