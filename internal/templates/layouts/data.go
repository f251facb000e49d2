// Package layouts holds the page shell and the typed context helpers that
// carry layout data from handlers and middleware to components without
// importing plugin types.
//
// Data flow: Middleware → Echo Context → LayoutInjector → Go Context → component
package layouts

import "context"

// ctxKey is a private type for context keys to prevent collisions.
type ctxKey string

const (
	keyCSRFToken ctxKey = "layout_csrf_token"
	keyVersion   ctxKey = "layout_version"
)

// --- Setters (called by the layout injector in app/routes.go) ---

// SetCSRFToken stores the CSRF token echoed by every HTMX request.
func SetCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, keyCSRFToken, token)
}

// SetVersion stores the app version shown in the footer.
func SetVersion(ctx context.Context, v string) context.Context {
	return context.WithValue(ctx, keyVersion, v)
}

// --- Getters (called by components) ---

// GetCSRFToken returns the CSRF token, or "".
func GetCSRFToken(ctx context.Context) string {
	token, _ := ctx.Value(keyCSRFToken).(string)
	return token
}

// GetVersion returns the app version, or "".
func GetVersion(ctx context.Context) string {
	v, _ := ctx.Value(keyVersion).(string)
	return v
}
