package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
)

// csrfTokenLength is the number of random bytes in a token (64 hex chars).
const csrfTokenLength = 32

// CSRFCookieName is the cookie holding the CSRF token.
const CSRFCookieName = "digest_csrf"

// CSRFHeaderName is the header HTMX echoes the token back in. The layout
// sets it for every request through hx-headers on <body>.
const CSRFHeaderName = "X-CSRF-Token"

// contextKeyCSRF is the Echo context key for the current token.
const contextKeyCSRF = "csrf_token"

// CSRF returns double-submit cookie protection for every mutating request.
// Paths under any of skipPrefixes are exempt; the ingest API authenticates
// with a Bearer key and never sees the cookie.
//
// How it works:
//  1. Any request without the cookie gets a fresh token set on it.
//  2. Mutating requests must echo the cookie value in X-CSRF-Token.
//  3. A missing or different header is a 403.
func CSRF(skipPrefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			// Bearer-authenticated routes carry no cookie to forge.
			for _, p := range skipPrefixes {
				if strings.HasPrefix(req.URL.Path, p) {
					return next(c)
				}
			}

			// Ensure a token cookie exists.
			token := ""
			cookie, err := req.Cookie(CSRFCookieName)
			if err == nil && cookie.Value != "" {
				token = cookie.Value
			} else {
				if token, err = generateCSRFToken(); err != nil {
					return apperror.NewInternal(err)
				}
				c.SetCookie(&http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // The layout reads it into hx-headers.
					Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
					SameSite: http.SameSiteLaxMode,
				})
			}
			// Stored for the layout, which renders it into hx-headers.
			c.Set(contextKeyCSRF, token)

			// Safe methods change nothing and skip validation.
			if isSafeMethod(req.Method) {
				return next(c)
			}

			// A freshly minted cookie cannot match anything the page sent.
			// The comparison is constant-time so the token cannot be guessed
			// byte by byte from response timing.
			submitted := req.Header.Get(CSRFHeaderName)
			if cookie == nil || submitted == "" ||
				subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				return apperror.NewForbidden("Your session expired. Please reload the page.")
			}
			return next(c)
		}
	}
}

// isSafeMethod returns true for HTTP methods that should not change state.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// generateCSRFToken returns a random hex-encoded token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken returns the token for the current request, for the layout.
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(contextKeyCSRF).(string)
	return token
}
