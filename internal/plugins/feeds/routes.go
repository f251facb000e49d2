package feeds

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the feed viewer routes. sessionMW must resolve the
// form session so each visitor sees the feeds of their own submission.
func RegisterRoutes(e *echo.Echo, h *Handler, s *Stream, sessionMW echo.MiddlewareFunc) {
	g := e.Group("/feeds", sessionMW)

	g.GET("", h.List)
	g.GET("/stream", s.Serve)
	g.GET("/sample", h.Sample)
	g.DELETE("/sample", h.ClearSample)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/export.csv", h.Export)
}

// RegisterAPIRoutes sets up the ingest endpoint used by the automation
// workflow. mw is applied in order; the caller passes the ingest key check
// and rate limiting.
func RegisterAPIRoutes(e *echo.Echo, h *Handler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api/v1", mw...)
	g.POST("/feeds", h.Ingest)
}
