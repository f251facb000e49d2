package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
)

// rateLimitPrefix namespaces limiter counters in Redis.
const rateLimitPrefix = "ratelimit:"

// RateLimit returns a fixed-window per-IP limiter backed by Redis, so every
// app instance shares one budget. name separates the counters of different
// routes. If Redis is unreachable the request is let through and the failure
// is logged.
func RateLimit(rdb *redis.Client, name string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			// One counter per limiter and client IP. RealIP honours the
			// trusted proxy configuration.
			key := rateLimitPrefix + name + ":" + c.RealIP()

			// INCR and the first EXPIRE run in one MULTI so a counter never
			// outlives its window. ExpireNX leaves the window start alone on
			// later requests.
			pipe := rdb.TxPipeline()
			incr := pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, window)
			if _, err := pipe.Exec(ctx); err != nil {
				// Fail open while Redis is unreachable.
				slog.Warn("rate limit check failed",
					slog.String("limiter", name),
					slog.Any("error", err),
				)
				return next(c)
			}

			// The request that crosses the limit is the first one refused.
			if incr.Val() > int64(maxRequests) {
				return apperror.NewTooManyRequests("Too many requests. Please try again in a moment.")
			}
			return next(c)
		}
	}
}
