package layouts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Pinned front-end dependencies.
const (
	htmxSrc   = "https://unpkg.com/htmx.org@2.0.4"
	htmxWSSrc = "https://unpkg.com/htmx-ext-ws@2.0.2/ws.js"
)

// Base wraps body in the page shell. The CSRF token is attached to every
// HTMX request through hx-headers; toasts render into #toast-region.
func Base(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		headers, err := json.Marshal(map[string]string{"X-CSRF-Token": GetCSRFToken(ctx)})
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head>`+
			`<meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title>`+
			`<link rel="stylesheet" href="/static/css/app.css">`+
			`<script src="%s" defer></script><script src="%s" defer></script>`+
			`<script src="/static/js/app.js" defer></script>`+
			`</head><body hx-headers="%s">`,
			templ.EscapeString(title), htmxSrc, htmxWSSrc, templ.EscapeString(string(headers)),
		); err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		footer := ""
		if v := GetVersion(ctx); v != "" {
			footer = `<footer class="site-footer">v` + templ.EscapeString(v) + `</footer>`
		}
		_, err = io.WriteString(w, footer+
			`<div id="toast-region" class="toast-region" role="status" aria-live="polite"></div>`+
			`</body></html>`)
		return err
	})
}
