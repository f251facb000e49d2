// Package pages renders the full-page responses: the app page and the error
// page. Fragments live with their plugins.
package pages

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/newsdigest/internal/templates/layouts"
)

// Index is the single app page: the form panel next to the live feed viewer.
// The viewer loads its list on page load and listens on /feeds/stream.
func Index(panel templ.Component) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<main class="app"><header class="app-header">`+
			`<h1>News Digest</h1><p>Pick up to three sources and topics. We send you a summary every morning.</p>`+
			`</header><div class="app-columns">`); err != nil {
			return err
		}
		if err := panel.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<section id="viewer" class="viewer" aria-labelledby="viewer-title" hx-ext="ws" ws-connect="/feeds/stream">`+
			`<h2 id="viewer-title">Your news</h2>`+
			`<div id="feed-list" class="feed-list" hx-get="/feeds" hx-trigger="load, feeds:refresh from:body" hx-swap="outerHTML">`+
			`<p class="loading">Loading…</p></div>`+
			`</section></div></main>`)
		return err
	})
	return layouts.Base("News Digest", body)
}

// ErrorPage renders a full error page for non-HTMX browser requests.
func ErrorPage(code int, message string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<main class="error-page"><h1>%d</h1><h2>%s</h2><p>%s</p><a class="btn" href="/">Back to the start</a></main>`,
			code, templ.EscapeString(http.StatusText(code)), templ.EscapeString(message))
		return err
	})
	return layouts.Base(http.StatusText(code), body)
}
