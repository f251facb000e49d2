package submissions

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the submission API. mw is applied to the group so
// the caller decides on authentication and rate limiting.
func RegisterRoutes(e *echo.Echo, h *Handler, mw ...echo.MiddlewareFunc) {
	api := e.Group("/api/v1/submissions", mw...)
	api.GET("/:id", h.Get)
}
