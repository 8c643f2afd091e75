package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared by every instance that
// talks to the same Redis. Each window is one key with a TTL.
type RedisLimiter struct {
	client   redis.Cmdable
	prefix   string
	limit    int
	duration time.Duration
}

// NewRedis returns a limiter storing counters under prefix.
func NewRedis(client redis.Cmdable, prefix string, limit int, duration time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, duration: duration}
}

// Allow increments key's counter and reports whether it is within the limit.
// The TTL is only set when the key is new so the window doesn't slide.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, l.duration)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.limit), nil
}

// Reset clears key's counter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
