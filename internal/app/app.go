// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, Echo instance)
// and wires the plugins together.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/config"
	"github.com/keyxmakerx/newsdigest/internal/middleware"
	"github.com/keyxmakerx/newsdigest/internal/templates/pages"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool (submissions and feeds).
	DB *sql.DB

	// Redis backs form sessions, submit locks, rate limits and the feed
	// event channel.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()

	// We log our own startup line.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() feeds the rate limiter, so only trusted proxies may set
	// forwarding headers.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	// Stylesheet and page script.
	e.Static("/static", "static")

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost (recovery) runs first, innermost (CSRF) runs last.
func (a *App) setupMiddleware() {
	// Must be outermost to catch panics from all other middleware.
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders())

	// Double-submit cookie on every browser mutation. The ingest API is
	// called server-to-server and authenticates with its key instead.
	a.Echo.Use(middleware.CSRF("/api/"))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to HTTP responses:
//
//   - API requests get JSON, including per-field messages.
//   - HTMX requests get a toast and no swap, so the page the visitor is
//     working on stays intact.
//   - Everything else gets the full error page.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	re := resolveError(err, c.Request().URL.Path)

	var werr error
	switch {
	case isAPIRequest(c):
		body := map[string]any{
			"error":   http.StatusText(re.code),
			"message": re.message,
		}
		if len(re.fields) > 0 {
			body["fields"] = re.fields
		}
		werr = c.JSON(re.code, body)

	case isHTMXRequest(c):
		// htmx does not swap error statuses by default; the toast carries
		// the message.
		middleware.Toast(c, middleware.ToastError, re.message)
		c.Response().Header().Set("HX-Reswap", "none")
		werr = c.NoContent(re.code)

	default:
		werr = middleware.Render(c, re.code, pages.ErrorPage(re.code, re.message))
	}
	if werr != nil {
		slog.Warn("failed to write error response", slog.Any("error", werr))
	}
}

// resolvedError is what the client is allowed to see of an error.
type resolvedError struct {
	code    int
	message string
	fields  apperror.FieldErrors
}

// resolveError reduces err to a status and a client-safe message, logging
// anything that carries an internal cause.
func resolveError(err error, path string) resolvedError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", path),
			)
		}
		return resolvedError{code: appErr.Code, message: appErr.Message, fields: appErr.Fields}
	}

	// Router errors such as 404 and 405.
	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		msg, ok := echoErr.Message.(string)
		if !ok || echoErr.Code >= http.StatusInternalServerError {
			msg = statusMessage(echoErr.Code)
		}
		return resolvedError{code: echoErr.Code, message: msg}
	}

	slog.Error("unhandled error", slog.Any("error", err), slog.String("path", path))
	return resolvedError{code: http.StatusInternalServerError, message: statusMessage(http.StatusInternalServerError)}
}

// statusMessages are shown when an error carries no message of its own.
var statusMessages = map[int]string{
	http.StatusBadRequest:          "That request could not be processed.",
	http.StatusUnauthorized:        "A valid API key is required.",
	http.StatusForbidden:           "You don't have permission to do that.",
	http.StatusNotFound:            "We couldn't find what you were looking for.",
	http.StatusMethodNotAllowed:    "This action is not allowed.",
	http.StatusConflict:            "This action conflicts with the current state.",
	http.StatusTooManyRequests:     "You're making too many requests. Please slow down.",
	http.StatusServiceUnavailable:  "The service is temporarily unavailable. Please try again later.",
	http.StatusInternalServerError: "Something went wrong on our end. Please try again.",
}

// statusMessage returns the fallback message for code.
func statusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return statusMessages[http.StatusInternalServerError]
}

// isAPIRequest returns true if the request is targeting the API (JSON response expected).
func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

// isHTMXRequest returns true if the request was initiated by HTMX.
func isHTMXRequest(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting newsdigest server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
