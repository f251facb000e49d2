package form

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up the form endpoints. sessionMW must resolve the form
// session (LoadSession); submitMW is applied to the submit route only and is
// where the caller plugs in rate limiting.
func RegisterRoutes(e *echo.Echo, h *Handler, sessionMW echo.MiddlewareFunc, submitMW ...echo.MiddlewareFunc) {
	g := e.Group("/form", sessionMW)

	// Tags.
	g.POST("/sources", h.AddSource)
	g.DELETE("/sources", h.RemoveSource)
	g.POST("/topics", h.AddTopic)
	g.DELETE("/topics", h.RemoveTopic)
	g.POST("/topics/toggle", h.ToggleTopic)

	// Controls and submit.
	g.POST("/email/validate", h.ValidateEmail)
	g.POST("/submit", h.Submit, submitMW...)
	g.POST("/reset", h.Reset)
}
