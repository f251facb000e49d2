package submissions

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the read-only submission API. The browser submit flow
// goes through the form plugin, which calls the service directly.
type Handler struct {
	service SubmissionService
}

// NewHandler creates a new submission handler backed by the given service.
func NewHandler(service SubmissionService) *Handler {
	return &Handler{service: service}
}

// Get returns one submission (GET /api/v1/submissions/:id). Legacy
// "sub-" IDs are accepted.
func (h *Handler) Get(c echo.Context) error {
	sub, err := h.service.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sub)
}
