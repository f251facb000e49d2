package feeds

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderList(t *testing.T, d ListData) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, FeedList(d).Render(context.Background(), &b))
	return b.String()
}

func TestFeedList_EscapesFeedText(t *testing.T) {
	hostile := `"><script>alert(1)</script>`
	f := Feed{
		ID:    `f"1`,
		Title: hostile,
		Date:  time.Date(2025, 4, 8, 8, 0, 0, 0, time.UTC),
		Items: []NewsItem{{ID: "i1", Title: hostile, Content: hostile, Source: hostile, Category: hostile}},
	}
	body := renderList(t, ListData{Groups: GroupFeeds([]Feed{f}), Context: Context{SubmissionID: testSubmissionID}})

	assert.NotContains(t, body, "<script>")
	doc := parseHTML(t, body)
	assert.Equal(t, 0, doc.Find("script").Length())
	assert.Equal(t, hostile, doc.Find(".news-title").Text())
	assert.Equal(t, hostile, doc.Find(".news-story h4").Text())
	assert.Equal(t, hostile, doc.Find(".news-story p").Text())
	assert.Equal(t, hostile, doc.Find(".feed-group").AttrOr("data-category", ""))
	assert.Equal(t, `f"1`, doc.Find(".news-item").AttrOr("data-feed-id", ""))
}

func TestRemoveCardOOB_EscapesID(t *testing.T) {
	var b strings.Builder
	require.NoError(t, RemoveCardOOB(`a"b`).Render(context.Background(), &b))

	doc := parseHTML(t, b.String())
	sel := doc.Find("[hx-swap-oob]")
	assert.Equal(t, `feed-a"b`, sel.AttrOr("id", ""))
	assert.Equal(t, "delete", sel.AttrOr("hx-swap-oob", ""))
}
