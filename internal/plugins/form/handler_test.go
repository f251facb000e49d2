package form

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
)

// newFormRequest builds an HTMX form request with the session already in context.
func newFormRequest(t *testing.T, method, target string, form url.Values, sess *Session) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(contextKeySession, sess)
	return c, rec
}

func parseHTML(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func TestHandler_AddSourceRendersTagAndError(t *testing.T) {
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, nil))
	sess := &Session{ID: "s"}

	c, rec := newFormRequest(t, http.MethodPost, "/form/sources", url.Values{"value": {"https://www.Forbes.com/x"}}, sess)
	require.NoError(t, h.AddSource(c))
	doc := parseHTML(t, rec.Body.String())
	assert.Equal(t, 1, doc.Find(`#sources-field li.tag[data-value="forbes.com"]`).Length())
	assert.Empty(t, strings.TrimSpace(doc.Find("#sources-error").Text()))

	c, rec = newFormRequest(t, http.MethodPost, "/form/sources", url.Values{"value": {"forbes.com"}}, sess)
	require.NoError(t, h.AddSource(c))
	doc = parseHTML(t, rec.Body.String())
	assert.Equal(t, "This source is already added", doc.Find("#sources-error").Text())
	assert.Equal(t, "polite", doc.Find("#sources-error").AttrOr("aria-live", ""))
}

func TestHandler_FullSourcesDisableInput(t *testing.T) {
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, nil))
	sess := &Session{ID: "s", Tags: TagStore{Sources: []string{"a.com", "b.com"}}}

	c, rec := newFormRequest(t, http.MethodPost, "/form/sources", url.Values{"value": {"c.com"}}, sess)
	require.NoError(t, h.AddSource(c))
	doc := parseHTML(t, rec.Body.String())
	_, disabled := doc.Find(`#sources-field input[name="value"]`).Attr("disabled")
	assert.True(t, disabled, "source input must be disabled at the limit")
}

func TestHandler_TopicCheckboxesDisabledWhenFull(t *testing.T) {
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, nil))
	sess := &Session{ID: "s", Tags: TagStore{Topics: []string{"ai", "science"}}}

	c, rec := newFormRequest(t, http.MethodPost, "/form/topics/toggle",
		url.Values{"topic": {"health"}, "checked": {"true"}}, sess)
	require.NoError(t, h.ToggleTopic(c))

	doc := parseHTML(t, rec.Body.String())
	doc.Find(".topic-checkbox input").Each(func(_ int, s *goquery.Selection) {
		_, checked := s.Attr("checked")
		_, disabled := s.Attr("disabled")
		assert.True(t, checked || disabled, "unchecked boxes must be disabled at the limit")
	})
	assert.Equal(t, 3, doc.Find(`li.tag[data-type="topic"]`).Length())
}

func TestHandler_RemoveSource(t *testing.T) {
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, nil))
	sess := &Session{ID: "s", Tags: TagStore{Sources: []string{"forbes.com", "wired.com"}}}

	c, rec := newFormRequest(t, http.MethodDelete, "/form/sources?value=forbes.com", nil, sess)
	require.NoError(t, h.RemoveSource(c))
	doc := parseHTML(t, rec.Body.String())
	assert.Equal(t, 0, doc.Find(`li.tag[data-value="forbes.com"]`).Length())
	assert.Equal(t, 1, doc.Find(`li.tag[data-value="wired.com"]`).Length())
}

func TestHandler_ValidateEmail(t *testing.T) {
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, nil))

	c, rec := newFormRequest(t, http.MethodPost, "/form/email/validate", url.Values{"email": {"a@b"}}, &Session{})
	require.NoError(t, h.ValidateEmail(c))
	assert.Equal(t, "Please enter a valid email address", parseHTML(t, rec.Body.String()).Find("#email-error").Text())

	c, rec = newFormRequest(t, http.MethodPost, "/form/email/validate", url.Values{"email": {""}}, &Session{})
	require.NoError(t, h.ValidateEmail(c))
	assert.Empty(t, parseHTML(t, rec.Body.String()).Find("#email-error").Text())
}

func TestHandler_SubmitShowsAllFieldErrors(t *testing.T) {
	subs := &mockSubmissionService{
		submitFn: func(ctx context.Context, lockKey string, data submissions.FormData) (*submissions.Result, error) {
			return &submissions.Result{State: submissions.StateIdle, Errors: submissions.ValidateFormData(data)}, nil
		},
	}
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, subs))

	c, rec := newFormRequest(t, http.MethodPost, "/form/submit", url.Values{"email": {"nope"}}, &Session{ID: "s"})
	require.NoError(t, h.Submit(c))

	doc := parseHTML(t, rec.Body.String())
	assert.Equal(t, "Please add at least one media source", doc.Find("#sources-error").Text())
	assert.Equal(t, "Please add at least one topic", doc.Find("#topics-error").Text())
	assert.Equal(t, "Please select a language", doc.Find("#language-error").Text())
	assert.Equal(t, "Please enter a valid email address", doc.Find("#email-error").Text())
	assert.Equal(t, "nope", doc.Find("#email").AttrOr("value", ""), "email must be echoed back")
	assert.Empty(t, rec.Header().Get("HX-Trigger"))
}

func TestHandler_SubmitSuccessTriggersToastAndRefresh(t *testing.T) {
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, nil))
	sess := &Session{ID: "s", Tags: TagStore{Sources: []string{"forbes.com"}, Topics: []string{"technology"}}}

	c, rec := newFormRequest(t, http.MethodPost, "/form/submit",
		url.Values{"language": {"english"}, "email": {"user@test.com"}}, sess)
	require.NoError(t, h.Submit(c))

	var events map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &events))
	assert.Contains(t, events, FeedsRefreshEvent)
	assert.Contains(t, string(events["toast"]), submissions.MsgSubmitted)

	doc := parseHTML(t, rec.Body.String())
	btn := doc.Find("#submit-btn")
	assert.Equal(t, "Submitted", btn.Text())
	_, disabled := btn.Attr("disabled")
	assert.True(t, disabled)
	assert.Equal(t, 0, doc.Find("li.tag").Length(), "inputs are cleared after success")
}

func TestHandler_SubmitInFlightIsNoOp(t *testing.T) {
	subs := &mockSubmissionService{
		submitFn: func(ctx context.Context, lockKey string, data submissions.FormData) (*submissions.Result, error) {
			return nil, submissions.ErrInFlight
		},
	}
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, subs))

	c, rec := newFormRequest(t, http.MethodPost, "/form/submit", url.Values{}, &Session{ID: "s"})
	require.NoError(t, h.Submit(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "none", rec.Header().Get("HX-Reswap"))
}

func TestHandler_MissingSession(t *testing.T) {
	h := NewHandler(newTestFormService(t, &mockSessionRepo{}, nil))
	c, _ := newFormRequest(t, http.MethodPost, "/form/sources", url.Values{}, nil)
	c.Set(contextKeySession, nil)
	assertAppError(t, h.AddSource(c), http.StatusInternalServerError)
}

func TestLoadSession_SetsCookieOnFirstVisit(t *testing.T) {
	svc := newTestFormService(t, &mockSessionRepo{}, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *Session
	mw := LoadSession(svc, 0)
	err := mw(func(c echo.Context) error {
		seen = GetSession(c)
		return nil
	})(c)
	require.NoError(t, err)
	require.NotNil(t, seen)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.Equal(t, seen.ID, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}
