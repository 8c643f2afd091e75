// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/washhub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devJWTSecret is accepted only when env is "dev".
const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for WashHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_addr, etc.
//   - Environment variables: WASHHUB_MONGO_URI, WASHHUB_REDIS_ADDR, etc.
//   - Command-line flags: --mongo_uri, --redis_addr, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017/?replicaSet=rs0", Desc: "MongoDB connection URI (replica set required)"},
	{Name: "mongo_database", Default: "washhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "auth_jwt_secret", Default: devJWTSecret, Desc: "HS256 secret for bearer tokens (must be set outside dev)"},
	{Name: "auth_jwt_issuer", Default: "", Desc: "Expected token issuer (blank disables the check)"},

	{Name: "redis_addr", Default: "", Desc: "Redis address for the shared rate limiter (blank uses in-process limiting)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	{Name: "amqp_url", Default: "", Desc: "RabbitMQ URL for audit events (blank disables publishing)"},
	{Name: "amqp_queue", Default: "washhub.audit", Desc: "Durable queue receiving audit events"},

	{Name: "redeem_rate_limit", Default: 10, Desc: "Invitation redemptions allowed per caller per window"},
	{Name: "redeem_rate_window", Default: "1m", Desc: "Redemption rate limit window (e.g., 1m, 30s)"},

	{Name: "reconcile_interval", Default: "5m", Desc: "How often the reconciler runs"},
	{Name: "orphan_grace", Default: "24h", Desc: "Age before an orphaned workspace is deleted"},

	{Name: "audit_log", Default: "all", Desc: "Audit event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for transactions and multi-document operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for background sweeps"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// WASHHUB_* environment variables and flags with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "WASHHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret: appValues.String("auth_jwt_secret"),
		JWTIssuer: appValues.String("auth_jwt_issuer"),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		AMQPURL:   appValues.String("amqp_url"),
		AMQPQueue: appValues.String("amqp_queue"),

		RedeemRateLimit:  appValues.Int("redeem_rate_limit"),
		RedeemRateWindow: appValues.Duration("redeem_rate_window", time.Minute),

		ReconcileInterval: appValues.Duration("reconcile_interval", 5*time.Minute),
		OrphanGrace:       appValues.Duration("orphan_grace", 24*time.Hour),

		AuditLog: appValues.String("audit_log"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI format is checked here to catch configuration errors
// before attempting to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

// validateApp checks the settings that don't need WAFFLE.
func validateApp(env string, appCfg AppConfig) error {
	var errs []error
	if appCfg.MongoDatabase == "" {
		errs = append(errs, errors.New("mongo_database is required"))
	}
	if appCfg.JWTSecret == "" {
		errs = append(errs, errors.New("auth_jwt_secret is required"))
	} else if env != "dev" && appCfg.JWTSecret == devJWTSecret {
		errs = append(errs, fmt.Errorf("auth_jwt_secret must be changed when env is %q", env))
	}
	if appCfg.RedeemRateLimit <= 0 || appCfg.RedeemRateWindow <= 0 {
		errs = append(errs, errors.New("redeem_rate_limit and redeem_rate_window must be positive"))
	}
	if appCfg.ReconcileInterval <= 0 {
		errs = append(errs, errors.New("reconcile_interval must be positive"))
	}
	if appCfg.OrphanGrace < 0 {
		errs = append(errs, errors.New("orphan_grace must not be negative"))
	}
	switch appCfg.AuditLog {
	case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
	default:
		errs = append(errs, fmt.Errorf("audit_log must be all, db, log or off, got %q", appCfg.AuditLog))
	}
	if appCfg.AMQPURL != "" && appCfg.AMQPQueue == "" {
		errs = append(errs, errors.New("amqp_queue is required when amqp_url is set"))
	}
	return errors.Join(errs...)
}
