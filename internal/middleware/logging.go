// Package middleware provides the HTTP middleware and response helpers for
// the newsdigest Echo server. See internal/app/routes.go for registration.
package middleware

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs every request with method, path, status, latency and
// client IP. Level follows the status: 5xx error, 4xx warn, else info.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			// Log after the handler returns so the status code is known.
			req := c.Request()
			res := c.Response()
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.Duration("latency", time.Since(start)),
				slog.String("remote_ip", c.RealIP()),
			}
			// Flag HTMX partial requests; they make up most of the traffic.
			if IsHTMX(c) {
				attrs = append(attrs, slog.Bool("htmx", true))
			}

			// Log at a level that follows the status code.
			level := slog.LevelInfo
			switch {
			case res.Status >= 500:
				level = slog.LevelError
			case res.Status >= 400:
				level = slog.LevelWarn
			}
			slog.LogAttrs(req.Context(), level, "request", attrs...)
			return err
		}
	}
}
