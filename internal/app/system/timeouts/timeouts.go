// Package timeouts holds the request-scoped deadlines handlers put on store calls.
//
// The membership protocol itself imposes no deadline; the HTTP layer bounds
// each request with one of these so an unreachable database surfaces as a
// TransientIOFailure instead of a hung client.
//
//   - Ping: health checks
//   - Short: single-document reads and writes
//   - Medium: list queries, profile sync, catalog writes
//   - Long: transactional protocol operations (join, kick, delete)
package timeouts

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

var (
	ping   atomic.Int64
	short  atomic.Int64
	medium atomic.Int64
	long   atomic.Int64
)

func init() {
	Reset()
}

func Ping() time.Duration   { return time.Duration(ping.Load()) }
func Short() time.Duration  { return time.Duration(short.Load()) }
func Medium() time.Duration { return time.Duration(medium.Load()) }
func Long() time.Duration   { return time.Duration(long.Load()) }

// Config overrides timeout values. Zero fields keep the current value.
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure applies non-zero values from cfg. Call it once during startup.
func Configure(cfg Config) {
	set := func(v *atomic.Int64, d time.Duration) {
		if d > 0 {
			v.Store(int64(d))
		}
	}
	set(&ping, cfg.Ping)
	set(&short, cfg.Short)
	set(&medium, cfg.Medium)
	set(&long, cfg.Long)
}

// Reset restores the defaults.
func Reset() {
	ping.Store(int64(DefaultPing))
	short.Store(int64(DefaultShort))
	medium.Store(int64(DefaultMedium))
	long.Store(int64(DefaultLong))
}

// Current returns the active configuration, for startup logging.
func Current() Config {
	return Config{Ping: Ping(), Short: Short(), Medium: Medium(), Long: Long()}
}

// WithTimeout is context.WithTimeout whose cancel func logs when the deadline
// was the reason the operation ended.
func WithTimeout(parent context.Context, d time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, d)
	return ctx, func() {
		if log != nil && ctx.Err() == context.DeadlineExceeded {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", d))
		}
		cancel()
	}
}
