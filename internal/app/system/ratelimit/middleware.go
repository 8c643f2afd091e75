package ratelimit

import (
	"net/http"

	"go.uber.org/zap"
)

// KeyFunc picks the bucket for a request.
type KeyFunc func(r *http.Request) string

// Middleware rejects requests over the limit with onLimited. If the limiter
// itself fails (Redis down) the request is let through and the error logged.
func Middleware(l Allower, key KeyFunc, log *zap.Logger, onLimited http.HandlerFunc) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), key(r))
			if err != nil {
				log.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
