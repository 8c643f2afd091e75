// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers ports, TLS, logging level, CORS and body
// limits. Everything specific to WashHub lives here and is passed to every
// lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration. Transactions and change streams
	// need a replica set.
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer token verification (HS256).
	JWTSecret string
	JWTIssuer string // blank disables the issuer check

	// Redis backs the shared redemption rate limiter. Blank RedisAddr falls
	// back to an in-process limiter.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ receives audit events. Blank AMQPURL disables publishing.
	AMQPURL   string
	AMQPQueue string

	// Redemption attempts allowed per caller per window.
	RedeemRateLimit  int
	RedeemRateWindow time.Duration

	// Reconciler schedule and how long an orphaned workspace survives.
	ReconcileInterval time.Duration
	OrphanGrace       time.Duration

	// AuditLog is "all", "db", "log" or "off".
	AuditLog string

	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
