package feeds

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyxmakerx/newsdigest/internal/apperror"
	"github.com/keyxmakerx/newsdigest/internal/plugins/form"
	"github.com/keyxmakerx/newsdigest/internal/plugins/submissions"
	"github.com/keyxmakerx/newsdigest/internal/realtime"
)

func newFeedRequest(t *testing.T, method, target string, sess *form.Session) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sess != nil {
		form.SetSession(c, sess)
	}
	return c, rec
}

func parseHTML(t *testing.T, body string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	return doc
}

func storedFeed() Feed {
	return Feed{
		ID:           "f1",
		SubmissionID: testSubmissionID,
		Date:         time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC),
		Items: []NewsItem{
			{ID: "i1", Title: "Chips", Content: "Faster", Source: "Wire", SourceURL: "https://wire.test/a", Category: "Technology"},
			{ID: "i2", Title: "Odd", Content: "<b>kept as text</b>", SourceURL: "javascript:alert(1)", Category: "Technology"},
		},
	}
}

func repoWith(feeds ...Feed) *mockFeedRepo {
	return &mockFeedRepo{
		listBySubmissionFn: func(ctx context.Context, id submissions.SubmissionID) ([]Feed, error) {
			return feeds, nil
		},
		findByIDFn: func(ctx context.Context, id string) (*Feed, error) {
			for _, f := range feeds {
				if f.ID == id {
					return &f, nil
				}
			}
			return nil, apperror.NewNotFound("news feed not found")
		},
	}
}

func TestHandler_ListRendersCards(t *testing.T) {
	h := NewHandler(newTestFeedService(t, repoWith(storedFeed()), nil), false)
	c, rec := newFeedRequest(t, http.MethodGet, "/feeds", &form.Session{ID: "s", SubmissionID: testSubmissionID})

	require.NoError(t, h.List(c))
	doc := parseHTML(t, rec.Body.String())

	card := doc.Find(`#feed-list .news-item[data-feed-id="f1"]`)
	require.Equal(t, 1, card.Length())
	assert.Equal(t, "Technology", card.Find(".news-title").Text())
	assert.Equal(t, "April 8, 8AM", card.Find(".news-date").Text())
	assert.Equal(t, "2 stories", card.Find(".news-count").Text())
	assert.Equal(t, "/feeds/f1/export.csv", card.Find(`a[download]`).AttrOr("href", ""))
	assert.Equal(t, "/feeds/f1", card.Find(`.delete button`).AttrOr("hx-delete", ""))

	links := card.Find("a.read-more")
	require.Equal(t, 1, links.Length(), "unsafe links are not rendered")
	assert.Equal(t, "https://wire.test/a", links.AttrOr("href", ""))
	assert.Equal(t, "<b>kept as text</b>", card.Find(".news-story p").Last().Text())

	assert.Equal(t, 1, doc.Find(`[data-feeds-toggle="expand"]`).Length())
	assert.Equal(t, 1, doc.Find(`[data-feeds-toggle="collapse"]`).Length())
}

func TestHandler_ListEmptyStates(t *testing.T) {
	h := NewHandler(newTestFeedService(t, repoWith(), nil), false)

	c, rec := newFeedRequest(t, http.MethodGet, "/feeds", &form.Session{ID: "s", SubmissionID: testSubmissionID})
	require.NoError(t, h.List(c))
	doc := parseHTML(t, rec.Body.String())
	assert.Equal(t, MsgPreparing, doc.Find(".empty-state-message").Text())
	assert.Equal(t, "/feeds/sample", doc.Find("#empty-state button").AttrOr("hx-get", ""))

	c, rec = newFeedRequest(t, http.MethodGet, "/feeds", &form.Session{ID: "s"})
	require.NoError(t, h.List(c))
	assert.Equal(t, MsgNoFeeds, parseHTML(t, rec.Body.String()).Find(".empty-state-message").Text())
}

func TestHandler_ListQueryContext(t *testing.T) {
	h := NewHandler(newTestFeedService(t, repoWith(storedFeed()), nil), false)

	c, rec := newFeedRequest(t, http.MethodGet, "/feeds?submission=sub-"+testSubmissionID, &form.Session{ID: "s"})
	require.NoError(t, h.List(c))
	assert.Equal(t, 1, parseHTML(t, rec.Body.String()).Find(".news-item").Length())

	c, _ = newFeedRequest(t, http.MethodGet, "/feeds?submission=garbage", &form.Session{ID: "s"})
	assertAppError(t, h.List(c), http.StatusBadRequest)
}

func TestHandler_Sample(t *testing.T) {
	h := NewHandler(newTestFeedService(t, repoWith(), nil), false)
	c, rec := newFeedRequest(t, http.MethodGet, "/feeds/sample", &form.Session{ID: "s"})

	require.NoError(t, h.Sample(c))
	doc := parseHTML(t, rec.Body.String())
	assert.Equal(t, "true", doc.Find("#feed-list").AttrOr("data-sample", ""))
	assert.Equal(t, 3, doc.Find(`.news-item[data-sample="true"]`).Length())
	assert.Equal(t, 3, doc.Find(".news-item .badge-sample").Length())
	assert.Equal(t, "/feeds/sample", doc.Find(`.feed-toolbar [hx-delete]`).AttrOr("hx-delete", ""))
}

func TestHandler_DeleteSample(t *testing.T) {
	repo := repoWith()
	repo.deleteFn = func(ctx context.Context, id string) error {
		t.Fatal("sample delete must not reach the store")
		return nil
	}
	h := NewHandler(newTestFeedService(t, repo, nil), false)

	c, rec := newFeedRequest(t, http.MethodDelete, "/feeds/sample-1", &form.Session{ID: "s"})
	c.SetParamNames("id")
	c.SetParamValues("sample-1")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var events map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(rec.Header().Get("HX-Trigger")), &events))
	assert.Contains(t, string(events["toast"]), MsgSampleRemoved)
	assert.Contains(t, events, CardRemovedEvent)
}

func TestHandler_DeleteLastFeedSwapsEmptyState(t *testing.T) {
	remaining := []Feed{storedFeed()}
	repo := repoWith(storedFeed())
	repo.listBySubmissionFn = func(ctx context.Context, id submissions.SubmissionID) ([]Feed, error) {
		return remaining, nil
	}
	repo.deleteFn = func(ctx context.Context, id string) error {
		remaining = nil
		return nil
	}
	h := NewHandler(newTestFeedService(t, repo, nil), false)

	c, rec := newFeedRequest(t, http.MethodDelete, "/feeds/f1", &form.Session{ID: "s", SubmissionID: testSubmissionID})
	c.SetParamNames("id")
	c.SetParamValues("f1")
	require.NoError(t, h.Delete(c))

	assert.Contains(t, rec.Header().Get("HX-Trigger"), MsgFeedDeleted)
	doc := parseHTML(t, rec.Body.String())
	assert.Equal(t, "outerHTML", doc.Find("#feed-list").AttrOr("hx-swap-oob", ""))
	assert.Equal(t, MsgPreparing, doc.Find(".empty-state-message").Text())
}

func TestHandler_Export(t *testing.T) {
	h := NewHandler(newTestFeedService(t, repoWith(storedFeed()), nil), false)
	c, rec := newFeedRequest(t, http.MethodGet, "/feeds/f1/export.csv", nil)
	c.SetParamNames("id")
	c.SetParamValues("f1")

	require.NoError(t, h.Export(c))
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, `attachment; filename="technology-2025-04-08.csv"`, rec.Header().Get(echo.HeaderContentDisposition))
	assert.True(t, strings.HasPrefix(rec.Body.String(), csvHeader+"\n"))
	assert.Equal(t, 3, strings.Count(rec.Body.String(), "\n"))
}

func TestRequireIngestKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	mw := RequireIngestKey(string(hash))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }

	tests := []struct {
		name   string
		header string
		code   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"no bearer prefix", "secret-key", http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newFeedRequest(t, http.MethodPost, "/api/v1/feeds", nil)
			if tt.header != "" {
				c.Request().Header.Set(echo.HeaderAuthorization, tt.header)
			}
			assertAppError(t, mw(ok)(c), tt.code)
		})
	}

	c, rec := newFeedRequest(t, http.MethodPost, "/api/v1/feeds", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer secret-key")
	require.NoError(t, mw(ok)(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	c, _ = newFeedRequest(t, http.MethodPost, "/api/v1/feeds", nil)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer secret-key")
	assertAppError(t, RequireIngestKey("")(ok)(c), http.StatusUnauthorized)
}

// --- Stream ---

type chanSubscription struct{ events chan realtime.Event }

func (s *chanSubscription) Events() <-chan realtime.Event { return s.events }
func (s *chanSubscription) Close() error                  { return nil }

type chanSubscriber struct{ sub *chanSubscription }

func (f *chanSubscriber) Subscribe(ctx context.Context) (realtime.Subscription, error) {
	return f.sub, nil
}

// memSessions is a SessionFinder whose sessions a test can change while a
// stream is open.
type memSessions struct {
	mu       sync.Mutex
	sessions map[string]form.Session
}

func newMemSessions(sessions ...form.Session) *memSessions {
	m := &memSessions{sessions: make(map[string]form.Session)}
	for _, s := range sessions {
		m.sessions[s.ID] = s
	}
	return m
}

func (m *memSessions) Find(ctx context.Context, id string) (*form.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperror.NewNotFound("form session not found")
	}
	return &s, nil
}

func (m *memSessions) setSubmission(id, submissionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	s.SubmissionID = submissionID
	m.sessions[id] = s
}

// openStream serves the stream for the session stored under "s" and dials it.
func openStream(t *testing.T, h *Handler, sub *chanSubscription, sessions *memSessions) (*websocket.Conn, func() string) {
	t.Helper()
	stream := NewStream(h, &chanSubscriber{sub: sub}, realtime.NewRegistry(), sessions)

	e := echo.New()
	e.GET("/feeds/stream", stream.Serve, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := sessions.Find(c.Request().Context(), "s")
			if err != nil {
				return err
			}
			form.SetSession(c, sess)
			return next(c)
		}
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/feeds/stream", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	read := func() string {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		return string(msg)
	}
	return conn, read
}

func TestStream_PushesFragments(t *testing.T) {
	h := NewHandler(newTestFeedService(t, repoWith(storedFeed()), nil), false)
	sub := &chanSubscription{events: make(chan realtime.Event, 4)}
	conn, read := openStream(t, h, sub, newMemSessions(form.Session{ID: "s", SubmissionID: testSubmissionID}))

	// An insert for another submission is ignored; ours reloads the list.
	sub.events <- realtime.Event{Type: realtime.EventInsert, Feed: realtime.FeedRef{ID: "x", SubmissionID: "other"}}
	sub.events <- realtime.Event{Type: realtime.EventInsert, Feed: realtime.FeedRef{ID: "f1", SubmissionID: testSubmissionID}}
	doc := parseHTML(t, read())
	assert.Equal(t, "outerHTML", doc.Find("#feed-list").AttrOr("hx-swap-oob", ""))
	assert.Equal(t, 1, doc.Find(`.news-item[data-feed-id="f1"]`).Length())

	// Deleting the only card removes it and swaps in the empty state.
	sub.events <- realtime.Event{Type: realtime.EventDelete, Feed: realtime.FeedRef{ID: "f1", SubmissionID: testSubmissionID}}
	doc = parseHTML(t, read())
	assert.Equal(t, "delete", doc.Find("#feed-f1").AttrOr("hx-swap-oob", ""))
	assert.Equal(t, 1, doc.Find("#empty-state").Length())

	// Broker gone: the server closes the stream with a code the page does
	// not reconnect on.
	close(sub.events)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}

func TestStream_FollowsSubmitAfterConnect(t *testing.T) {
	h := NewHandler(newTestFeedService(t, repoWith(storedFeed()), nil), false)
	sub := &chanSubscription{events: make(chan realtime.Event, 4)}
	sessions := newMemSessions(form.Session{ID: "s"})
	conn, read := openStream(t, h, sub, sessions)

	// Before the visitor submits there is nothing to list, so another
	// visitor's feed pushes nothing.
	sub.events <- realtime.Event{Type: realtime.EventInsert, Feed: realtime.FeedRef{ID: "x", SubmissionID: "other"}}

	// The visitor submits; their feed then arrives.
	sessions.setSubmission("s", testSubmissionID)
	sub.events <- realtime.Event{Type: realtime.EventInsert, Feed: realtime.FeedRef{ID: "f1", SubmissionID: testSubmissionID}}

	doc := parseHTML(t, read())
	assert.Equal(t, 1, doc.Find(`.news-item[data-feed-id="f1"]`).Length())
	assert.Equal(t, 0, doc.Find("#empty-state").Length())

	// After a reset the stream is back to no context and stays quiet.
	sessions.setSubmission("s", "")
	sub.events <- realtime.Event{Type: realtime.EventInsert, Feed: realtime.FeedRef{ID: "f2", SubmissionID: testSubmissionID}}
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout(), "no fragment expected, got %v", err)
}
