package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets the security headers sent with every response.
// htmx and its WebSocket extension load from unpkg; the live feed stream
// needs ws/wss in connect-src.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			// Content-Security-Policy: restrict what the browser may load.
			// Scripts come from this origin plus unpkg for htmx. Inline
			// styles stay allowed for htmx's own indicator styles.
			h.Set("Content-Security-Policy",
				"default-src 'self'; "+
					"script-src 'self' https://unpkg.com; "+
					"style-src 'self' 'unsafe-inline'; "+
					"img-src 'self' data:; "+
					"connect-src 'self' ws: wss:; "+
					"frame-ancestors 'none'; "+
					"base-uri 'self'; "+
					"form-action 'self'",
			)

			// Strict-Transport-Security: browsers use HTTPS for a year. TLS
			// terminates at the reverse proxy.
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			// X-Content-Type-Options: no MIME sniffing.
			h.Set("X-Content-Type-Options", "nosniff")

			// X-Frame-Options: no framing, for browsers that ignore
			// frame-ancestors.
			h.Set("X-Frame-Options", "DENY")

			// Referrer-Policy: only the origin leaves the site, so feed
			// links do not leak ?submission= IDs.
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Permissions-Policy: none of these browser features are used.
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

			return next(c)
		}
	}
}
