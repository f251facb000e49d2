package feeds

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/newsdigest/internal/sanitize"
)

// Empty state messages.
const (
	MsgPreparing = `Your news feed is being prepared. Check back soon for updates or click "Show Preview" to see an example.`
	MsgNoFeeds   = `No news feeds available yet. Submit the form to get your first digest.`
)

// Toast messages for card deletion.
const (
	MsgFeedDeleted   = "News feed deleted successfully"
	MsgSampleRemoved = "Sample feed removed"
)

// cardDateLayout renders dates like "January 2, 8AM".
const cardDateLayout = "January 2, 3PM"

// ListData is everything the feed list needs to render.
type ListData struct {
	Groups  []Group
	Context Context

	// Sample marks a preview list; its cards never touch the store.
	Sample bool
}

// Empty reports whether there is no card to show.
func (d ListData) Empty() bool {
	for _, g := range d.Groups {
		if len(g.Feeds) > 0 {
			return false
		}
	}
	return true
}

// FeedList renders #feed-list. It reloads itself whenever the page fires
// feeds:refresh.
func FeedList(d ListData) templ.Component {
	return component(func(b *strings.Builder) { writeFeedList(b, d, false) })
}

// FeedListOOB renders #feed-list as an out-of-band swap for the live stream.
func FeedListOOB(d ListData) templ.Component {
	return component(func(b *strings.Builder) { writeFeedList(b, d, true) })
}

// RemoveCardOOB deletes one card in place.
func RemoveCardOOB(feedID string) templ.Component {
	return component(func(b *strings.Builder) {
		fmt.Fprintf(b, `<div id="%s" hx-swap-oob="delete"></div>`, esc(cardID(feedID)))
	})
}

func component(fn func(b *strings.Builder)) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fn(&b)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// esc escapes text for HTML bodies and attribute values.
func esc(s string) string { return templ.EscapeString(s) }

func cardID(feedID string) string { return "feed-" + feedID }

func writeFeedList(b *strings.Builder, d ListData, oob bool) {
	b.WriteString(`<div id="feed-list" class="feed-list" hx-get="/feeds" hx-trigger="feeds:refresh from:body" hx-swap="outerHTML"`)
	if oob {
		b.WriteString(` hx-swap-oob="outerHTML"`)
	}
	if d.Sample {
		b.WriteString(` data-sample="true"`)
	}
	b.WriteString(`>`)

	if d.Empty() {
		writeEmptyState(b, d)
		b.WriteString(`</div>`)
		return
	}

	b.WriteString(`<div class="feed-toolbar" role="toolbar" aria-label="Feed display">`)
	b.WriteString(`<button type="button" class="btn btn-small" data-feeds-toggle="expand">Expand All</button>`)
	b.WriteString(`<button type="button" class="btn btn-small" data-feeds-toggle="collapse">Collapse All</button>`)
	if d.Sample {
		b.WriteString(`<span class="badge badge-sample">Preview</span>`)
		b.WriteString(`<button type="button" class="btn btn-small" hx-delete="/feeds/sample" hx-target="#feed-list" hx-swap="outerHTML">Clear preview</button>`)
	}
	b.WriteString(`</div>`)

	for _, g := range d.Groups {
		fmt.Fprintf(b, `<section class="feed-group" data-category="%s"><h2 class="feed-group-title">%s</h2>`,
			esc(g.Category), esc(g.Category))
		for _, f := range g.Feeds {
			writeCard(b, f)
		}
		b.WriteString(`</section>`)
	}
	b.WriteString(`</div>`)
}

func writeEmptyState(b *strings.Builder, d ListData) {
	msg := MsgNoFeeds
	if d.Context.HasSubmission() {
		msg = MsgPreparing
	}
	b.WriteString(`<div id="empty-state" class="empty-state">`)
	fmt.Fprintf(b, `<p class="empty-state-message" role="status" aria-live="polite">%s</p>`, esc(msg))
	b.WriteString(`<button type="button" class="btn" hx-get="/feeds/sample" hx-target="#feed-list" hx-swap="outerHTML" hx-disabled-elt="this">Show Preview</button>`)
	b.WriteString(`</div>`)
}

func writeCard(b *strings.Builder, f Feed) {
	title := f.DisplayTitle()
	sample := f.IsSample()

	fmt.Fprintf(b, `<details class="news-item" id="%s" data-feed-id="%s"`, esc(cardID(f.ID)), esc(f.ID))
	if sample {
		b.WriteString(` data-sample="true"`)
	}
	b.WriteString(` open>`)

	// Header; clicking it toggles the card.
	b.WriteString(`<summary class="news-header">`)
	fmt.Fprintf(b, `<h3 class="news-title">%s</h3>`, esc(title))
	if sample {
		b.WriteString(`<span class="badge badge-sample">Sample</span>`)
	}
	fmt.Fprintf(b, `<time class="news-date" datetime="%s">%s</time>`,
		esc(f.Date.UTC().Format("2006-01-02T15:04:05Z07:00")), esc(f.Date.UTC().Format(cardDateLayout)))
	fmt.Fprintf(b, `<span class="news-count">%d %s</span>`, len(f.Items), plural(len(f.Items), "story", "stories"))
	b.WriteString(`</summary>`)

	// Menu.
	b.WriteString(`<div class="news-menu"><details class="news-menu-dropdown"><summary aria-label="More options">&#8942;</summary><ul>`)
	fmt.Fprintf(b, `<li><a href="/feeds/%s/export.csv" download>Download CSV</a></li>`, esc(f.ID))
	fmt.Fprintf(b, `<li class="delete"><button type="button" hx-delete="/feeds/%s" hx-target="#%s" hx-swap="outerHTML">Delete news feed</button></li>`,
		esc(f.ID), esc(cardID(f.ID)))
	b.WriteString(`</ul></details></div>`)

	b.WriteString(`<div class="news-stories">`)
	for _, it := range f.Items {
		writeStory(b, it)
	}
	b.WriteString(`</div></details>`)
}

func writeStory(b *strings.Builder, it NewsItem) {
	b.WriteString(`<article class="news-story">`)
	fmt.Fprintf(b, `<h4>%s</h4>`, esc(it.Title))
	fmt.Fprintf(b, `<p>%s</p>`, esc(it.Content))
	b.WriteString(`<div class="news-meta">`)
	if it.Source != "" {
		fmt.Fprintf(b, `<span class="badge badge-source">%s</span>`, esc(it.Source))
	}
	if it.Category != "" {
		fmt.Fprintf(b, `<span class="badge badge-category">%s</span>`, esc(it.Category))
	}
	if link := sanitize.Link(it.SourceURL); link != sanitize.FallbackLink {
		fmt.Fprintf(b, `<a class="read-more" href="%s" target="_blank" rel="noopener noreferrer">Read more</a>`, esc(link))
	}
	b.WriteString(`</div></article>`)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
