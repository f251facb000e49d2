package form

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// sessionCookieName is the cookie carrying the form session ID.
const sessionCookieName = "digest_session"

// contextKeySession is the Echo context key for the loaded *Session.
const contextKeySession = "form_session"

// LoadSession returns middleware that resolves the visitor's form session
// from the cookie, creating one on first visit, and stores it in the Echo
// context. The cookie lifetime follows the Redis TTL.
func LoadSession(service FormService, ttl time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := ""
			if cookie, err := c.Cookie(sessionCookieName); err == nil {
				id = cookie.Value
			}

			sess, err := service.Load(c.Request().Context(), id)
			if err != nil {
				return err
			}
			if sess.ID != id {
				setSessionCookie(c, sess.ID, ttl)
			}

			SetSession(c, sess)
			return next(c)
		}
	}
}

// SetSession stores the form session in the Echo context.
func SetSession(c echo.Context, sess *Session) {
	c.Set(contextKeySession, sess)
}

// GetSession retrieves the form session from the Echo context. Returns nil
// when LoadSession did not run for this route.
func GetSession(c echo.Context) *Session {
	sess, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return sess
}

// ActiveSubmission returns the submission ID the visitor's feed view is
// scoped to, or "".
func ActiveSubmission(c echo.Context) string {
	if sess := GetSession(c); sess != nil {
		return sess.SubmissionID
	}
	return ""
}

// setSessionCookie writes the session cookie. HttpOnly, Secure behind TLS,
// SameSite=Lax.
func setSessionCookie(c echo.Context, id string, ttl time.Duration) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
}
