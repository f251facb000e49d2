package form

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
)

// PanelData is everything the form panel needs to render.
type PanelData struct {
	Session   *Session
	Catalogue *Catalogue

	// Language and Email echo the submitted control values back after a
	// failed submit so the visitor does not retype them.
	Language string
	Email    string

	// Errors holds submit-time field errors; the Message fields hold the
	// result of the last tag operation.
	Errors        apperror.FieldErrors
	SourceMessage string
	TopicMessage  string
}

// sourceError returns the message shown under the sources input.
func (d PanelData) sourceError() string {
	if d.SourceMessage != "" {
		return d.SourceMessage
	}
	return d.Errors.Get(submissions.FieldSources)
}

// topicError returns the message shown under the topics input.
func (d PanelData) topicError() string {
	if d.TopicMessage != "" {
		return d.TopicMessage
	}
	return d.Errors.Get(submissions.FieldTopics)
}

// Panel renders the whole form panel (#form-panel).
func Panel(d PanelData) templ.Component {
	return component(func(b *strings.Builder) { writePanel(b, d) })
}

// SourcesField renders #sources-field alone, for tag add/remove swaps.
func SourcesField(d PanelData) templ.Component {
	return component(func(b *strings.Builder) { writeSourcesField(b, d) })
}

// TopicsField renders #topics-field alone, for tag add/remove/toggle swaps.
func TopicsField(d PanelData) templ.Component {
	return component(func(b *strings.Builder) { writeTopicsField(b, d) })
}

// EmailError renders the inline email message (#email-error).
func EmailError(msg string) templ.Component {
	return component(func(b *strings.Builder) { writeFieldError(b, "email-error", msg) })
}

// component buffers the markup so a partial write never reaches the client.
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

func writePanel(b *strings.Builder, d PanelData) {
	locked := d.Session.Locked

	b.WriteString(`<section id="form-panel" class="form-panel`)
	if locked {
		b.WriteString(` is-submitted`)
	}
	b.WriteString(`" aria-labelledby="form-title">`)
	b.WriteString(`<h2 id="form-title">Build your daily digest</h2>`)

	writeSourcesField(b, d)
	writeTopicsField(b, d)

	b.WriteString(`<form id="subscribe-form" hx-post="/form/submit" hx-target="#form-panel" hx-swap="outerHTML" novalidate>`)

	// Language.
	b.WriteString(`<div class="field"><label for="language">Language</label>`)
	fmt.Fprintf(b, `<select id="language" name="language" aria-describedby="language-error"%s>`, disabledAttr(locked))
	b.WriteString(`<option value="">Select a language</option>`)
	for _, l := range d.Catalogue.Languages {
		fmt.Fprintf(b, `<option value="%s"%s>%s</option>`,
			esc(l.Value), selectedAttr(l.Value == d.Language), esc(l.Label))
	}
	b.WriteString(`</select>`)
	writeFieldError(b, "language-error", d.Errors.Get(submissions.FieldLanguage))
	b.WriteString(`</div>`)

	// Email, validated as the visitor types.
	b.WriteString(`<div class="field"><label for="email">Email</label>`)
	fmt.Fprintf(b, `<input id="email" type="email" name="email" value="%s" placeholder="you@example.com" autocomplete="email" `+
		`hx-post="/form/email/validate" hx-trigger="input changed delay:500ms" hx-target="#email-error" hx-swap="outerHTML" `+
		`aria-describedby="email-error"%s>`, esc(d.Email), disabledAttr(locked))
	writeFieldError(b, "email-error", d.Errors.Get(submissions.FieldEmail))
	b.WriteString(`</div>`)

	if locked {
		b.WriteString(`<button type="submit" id="submit-btn" class="btn btn-primary" disabled>Submitted</button>`)
	} else {
		b.WriteString(`<button type="submit" id="submit-btn" class="btn btn-primary" hx-disabled-elt="this">Create my digest</button>`)
	}
	b.WriteString(`</form>`)

	if locked {
		b.WriteString(`<button type="button" class="btn btn-link" hx-post="/form/reset" hx-target="#form-panel" hx-swap="outerHTML">Start over</button>`)
	}

	// Screen-reader summary of every current error.
	b.WriteString(`<div id="form-status" class="sr-only" role="status" aria-live="polite">`)
	b.WriteString(esc(strings.Join(d.Errors.Messages(), ". ")))
	b.WriteString(`</div>`)

	b.WriteString(`</section>`)
}

func writeSourcesField(b *strings.Builder, d PanelData) {
	tags := &d.Session.Tags
	locked := d.Session.Locked
	inputOff := locked || tags.Full(KindSource)

	b.WriteString(`<fieldset id="sources-field" class="field">`)
	fmt.Fprintf(b, `<legend>Media sources <span class="count">%d/%d</span></legend>`, tags.Count(KindSource), MaxTagsPerKind)
	writeTags(b, tags.Tags(KindSource), "/form/sources", "#sources-field", locked)

	b.WriteString(`<form class="tag-input" hx-post="/form/sources" hx-target="#sources-field" hx-swap="outerHTML">`)
	fmt.Fprintf(b, `<input type="text" name="value" placeholder="e.g. techcrunch.com, bbc.co.uk" autocomplete="off" `+
		`aria-label="Add a media source" aria-describedby="sources-error"%s>`, disabledAttr(inputOff))
	fmt.Fprintf(b, `<button type="submit" class="btn"%s>Add</button>`, disabledAttr(inputOff))
	b.WriteString(`</form>`)

	writeFieldError(b, "sources-error", d.sourceError())
	b.WriteString(`</fieldset>`)
}

func writeTopicsField(b *strings.Builder, d PanelData) {
	tags := &d.Session.Tags
	locked := d.Session.Locked
	full := tags.Full(KindTopic)

	b.WriteString(`<fieldset id="topics-field" class="field">`)
	fmt.Fprintf(b, `<legend>Topics <span class="count">%d/%d</span></legend>`, tags.Count(KindTopic), MaxTagsPerKind)

	b.WriteString(`<div class="topic-checkboxes">`)
	for _, topic := range d.Catalogue.Topics {
		checked := tags.Has(topic, KindTopic)
		vals, _ := json.Marshal(map[string]string{"topic": topic})
		fmt.Fprintf(b, `<label class="topic-checkbox"><input type="checkbox" name="checked" value="true"%s%s `+
			`hx-post="/form/topics/toggle" hx-vals="%s" hx-target="#topics-field" hx-swap="outerHTML"> %s</label>`,
			checkedAttr(checked), disabledAttr(locked || (full && !checked)), esc(string(vals)), esc(topic))
	}
	b.WriteString(`</div>`)

	writeTags(b, tags.Tags(KindTopic), "/form/topics", "#topics-field", locked)

	b.WriteString(`<form class="tag-input" hx-post="/form/topics" hx-target="#topics-field" hx-swap="outerHTML">`)
	fmt.Fprintf(b, `<input type="text" name="value" placeholder="Other topics, comma separated" autocomplete="off" `+
		`aria-label="Add a topic" aria-describedby="topics-error"%s>`, disabledAttr(locked || full))
	fmt.Fprintf(b, `<button type="submit" class="btn"%s>Add</button>`, disabledAttr(locked || full))
	b.WriteString(`</form>`)

	writeFieldError(b, "topics-error", d.topicError())
	b.WriteString(`</fieldset>`)
}

func writeTags(b *strings.Builder, tags []Tag, endpoint, target string, locked bool) {
	b.WriteString(`<ul class="tags">`)
	for _, t := range tags {
		fmt.Fprintf(b, `<li class="tag" data-type="%s" data-value="%s"><span>%s</span>`,
			esc(string(t.Kind)), esc(t.Value), esc(t.Value))
		if !locked {
			fmt.Fprintf(b, `<button type="button" class="remove-tag" aria-label="Remove %s %s" `+
				`hx-delete="%s?value=%s" hx-target="%s" hx-swap="outerHTML">&times;</button>`,
				esc(string(t.Kind)), esc(t.Value), endpoint, esc(url.QueryEscape(t.Value)), target)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul>`)
}

func writeFieldError(b *strings.Builder, id, msg string) {
	fmt.Fprintf(b, `<p id="%s" class="field-error" role="alert" aria-live="polite">%s</p>`, id, esc(msg))
}

func disabledAttr(on bool) string {
	if on {
		return ` disabled`
	}
	return ""
}

func checkedAttr(on bool) string {
	if on {
		return ` checked`
	}
	return ""
}

func selectedAttr(on bool) string {
	if on {
		return ` selected`
	}
	return ""
}
