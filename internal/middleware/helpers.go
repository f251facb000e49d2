package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
)

// LayoutInjector copies layout data (CSRF token, form session state) from the
// Echo context into the Go context so components can read it. Registered once
// at startup in app/routes.go, which keeps this package free of plugin imports.
var LayoutInjector func(echo.Context, context.Context) context.Context

// ToastDurationMS is how long a toast stays up before it dismisses itself.
const ToastDurationMS = 8000

// Toast kinds understood by the page script.
const (
	ToastSuccess = "success"
	ToastError   = "error"
)

// IsHTMX returns true if the current request was initiated by HTMX and is NOT
// a boosted navigation. Handlers use this to decide whether to return a
// fragment or a full page.
func IsHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true" &&
		c.Request().Header.Get("HX-Boosted") != "true"
}

// Render writes a Templ component to the response with the given status code.
// Before rendering, it runs the LayoutInjector (if registered).
func Render(c echo.Context, statusCode int, component templ.Component) error {
	ctx := c.Request().Context()
	if LayoutInjector != nil {
		ctx = LayoutInjector(c, ctx)
	}

	c.Response().Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Response().WriteHeader(statusCode)
	return component.Render(ctx, c.Response().Writer)
}

// Trigger adds an event to the HX-Trigger response header. Calling it more
// than once merges the events into one JSON object. Must be called before
// the response is written.
func Trigger(c echo.Context, event string, detail any) {
	h := c.Response().Header()
	events := map[string]any{}
	if existing := h.Get("HX-Trigger"); existing != "" {
		if err := json.Unmarshal([]byte(existing), &events); err != nil {
			// A plain event name rather than JSON.
			events = map[string]any{existing: true}
		}
	}
	if detail == nil {
		detail = true
	}
	events[event] = detail

	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	h.Set("HX-Trigger", string(data))
}

// Toast queues a transient notification for the page to show.
func Toast(c echo.Context, kind, message string) {
	Trigger(c, "toast", map[string]any{
		"kind":     kind,
		"message":  message,
		"duration": ToastDurationMS,
	})
}

// NoSwap answers an HTMX request without touching the DOM.
func NoSwap(c echo.Context) error {
	c.Response().Header().Set("HX-Reswap", "none")
	return c.NoContent(http.StatusNoContent)
}
