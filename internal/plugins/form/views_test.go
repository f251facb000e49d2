package form

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
)

func renderPanel(t *testing.T, d PanelData) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, Panel(d).Render(context.Background(), &b))
	return b.String()
}

func TestPanel_EscapesEchoedValues(t *testing.T) {
	hostile := `x"><script>alert(1)</script>`
	body := renderPanel(t, PanelData{
		Session:   &Session{ID: "s", Tags: TagStore{Topics: []string{hostile}}},
		Catalogue: testCatalogue(t),
		Email:     hostile,
		Errors:    apperror.FieldErrors{{Field: submissions.FieldEmail, Message: hostile}},
	})

	assert.NotContains(t, body, "<script>")
	doc := parseHTML(t, body)
	assert.Equal(t, 0, doc.Find("script").Length())
	assert.Equal(t, hostile, doc.Find("#email").AttrOr("value", ""))
	assert.Equal(t, hostile, doc.Find("#email-error").Text())
	assert.Equal(t, hostile, doc.Find(`#topics-field li.tag`).AttrOr("data-value", ""))
}

func TestEmailError_EscapesMessage(t *testing.T) {
	var b strings.Builder
	require.NoError(t, EmailError("<b>bad</b> & worse").Render(context.Background(), &b))

	doc := parseHTML(t, b.String())
	assert.Equal(t, 0, doc.Find("b").Length())
	assert.Equal(t, "<b>bad</b> & worse", doc.Find("#email-error").Text())
}
