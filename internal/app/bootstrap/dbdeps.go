// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/washhub/internal/app/system/events"
	"github.com/dalemusser/washhub/internal/app/system/ratelimit"
	"github.com/dalemusser/washhub/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis *redis.Client

	// Publisher is events.Nop when amqp_url is blank.
	Publisher events.Publisher

	// bg is filled in by Startup and released by Shutdown.
	bg *background
}

// background holds what Startup creates and Shutdown stops. DBDeps is
// passed by value, so it is shared through a pointer.
type background struct {
	reconciler *workers.Reconciler
	limiter    ratelimit.Allower
	memLimiter *ratelimit.Limiter // non-nil when limiting in process
}
