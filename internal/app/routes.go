package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/newsdigest/internal/middleware"
	"github.com/keyxmakerx/newsdigest/internal/plugins/feeds"
	"github.com/keyxmakerx/newsdigest/internal/plugins/form"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
	"github.com/keyxmakerx/newsdigest/internal/realtime"
	"github.com/keyxmakerx/newsdigest/internal/templates/layouts"
	"github.com/keyxmakerx/newsdigest/internal/templates/pages"
	"github.com/keyxmakerx/newsdigest/internal/webhook"
)

// healthTimeout bounds each dependency ping in /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes wires every plugin and registers all application routes.
// This is the single place where routes are aggregated.
func (a *App) RegisterRoutes() error {
	e := a.Echo
	cfg := a.Config

	// Layout data flows from the Echo context into components through the
	// Go context.
	middleware.LayoutInjector = func(c echo.Context, ctx context.Context) context.Context {
		ctx = layouts.SetCSRFToken(ctx, middleware.GetCSRFToken(c))
		ctx = layouts.SetVersion(ctx, cfg.Version)
		return ctx
	}

	// --- Submissions ---
	var notifier submissions.Notifier
	if cfg.Webhook.URL != "" {
		notifier = webhook.NewClient(webhook.Config{
			URL:      cfg.Webhook.URL,
			Timeout:  cfg.Webhook.Timeout,
			Schedule: cfg.Webhook.Schedule,
			Version:  cfg.Version,
		})
	} else {
		slog.Warn("WEBHOOK_URL not set; submissions are stored without notifying the workflow")
	}
	subRepo := submissions.NewSubmissionRepository(a.DB)
	subService := submissions.NewSubmissionService(subRepo,
		submissions.NewRedisLocker(a.Redis, cfg.Form.SubmitLockTTL), notifier)

	// --- Form ---
	catalogue, err := form.LoadCatalogue()
	if err != nil {
		return fmt.Errorf("loading form catalogue: %w", err)
	}
	formService := form.NewFormService(form.NewSessionRepository(a.Redis, cfg.Form.SessionTTL), subService, catalogue)
	formHandler := form.NewHandler(formService)
	sessionMW := form.LoadSession(formService, cfg.Form.SessionTTL)

	// --- Feeds ---
	samples, err := feeds.LoadSamples(nil)
	if err != nil {
		return fmt.Errorf("loading sample feeds: %w", err)
	}
	broker := realtime.NewRedisBroker(a.Redis)
	feedService := feeds.NewFeedService(feeds.NewFeedRepository(a.DB), samples, broker)
	feedHandler := feeds.NewHandler(feedService, cfg.Feeds.FallbackLatest)
	stream := feeds.NewStream(feedHandler, broker, realtime.NewRegistry(), formService)

	// --- Public Routes ---

	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Index(form.Panel(formHandler.PanelData(form.GetSession(c)))))
	}, sessionMW)

	// Health check for the container orchestrator.
	e.GET("/healthz", a.healthz)

	form.RegisterRoutes(e, formHandler, sessionMW,
		middleware.RateLimit(a.Redis, "submit", cfg.Form.SubmitRateLimit, time.Minute))
	feeds.RegisterRoutes(e, feedHandler, stream, sessionMW)

	// --- API Routes ---
	// Called by the automation workflow with the shared ingest key.
	apiMW := []echo.MiddlewareFunc{
		middleware.RateLimit(a.Redis, "ingest", cfg.Feeds.IngestRateLimit, time.Minute),
		feeds.RequireIngestKey(cfg.Feeds.IngestKeyHash),
	}
	feeds.RegisterAPIRoutes(e, feedHandler, apiMW...)
	submissions.RegisterRoutes(e, submissions.NewHandler(subService), apiMW...)

	return nil
}

// healthz reports 503 when MariaDB or Redis cannot be reached.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK

	if err := a.DB.PingContext(ctx); err != nil {
		slog.Warn("health check: database unreachable", slog.Any("error", err))
		status["database"], status["status"] = "down", "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := a.Redis.Ping(ctx).Err(); err != nil {
		slog.Warn("health check: redis unreachable", slog.Any("error", err))
		status["redis"], status["status"] = "down", "degraded"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}
