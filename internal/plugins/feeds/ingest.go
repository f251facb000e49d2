package feeds

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
)

// RequireIngestKey returns middleware that authenticates the automation
// workflow. The Authorization header must carry "Bearer <key>" matching the
// bcrypt hash. An empty hash disables ingest entirely.
func RequireIngestKey(keyHash string) echo.MiddlewareFunc {
	hash := []byte(keyHash)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(hash) == 0 {
				return apperror.NewUnauthorized("feed ingest is not configured")
			}

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return apperror.NewUnauthorized("api key required")
			}
			rawKey := strings.TrimPrefix(authHeader, "Bearer ")
			if rawKey == authHeader {
				return apperror.NewUnauthorized("invalid authorization format, use: Bearer <key>")
			}

			if err := bcrypt.CompareHashAndPassword(hash, []byte(rawKey)); err != nil {
				slog.Warn("ingest auth failure", slog.String("ip", c.RealIP()))
				return apperror.NewUnauthorized("invalid api key")
			}
			return next(c)
		}
	}
}

// Ingest stores a feed posted by the workflow (POST /api/v1/feeds).
func (h *Handler) Ingest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	f, err := h.service.Ingest(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, f)
}
