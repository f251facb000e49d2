package feeds

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeedToCSV(t *testing.T) {
	f := &Feed{
		Title: "Markets",
		Items: []NewsItem{
			{Title: `Rates "hold"`, Content: "Up, then down", Source: "Wire", SourceURL: "https://x.test/a", Category: "Finance"},
			{Title: "Plain"},
		},
	}

	want := "Title,Content,Source,Source URL,Category\n" +
		`"Rates ""hold""","Up, then down","Wire","https://x.test/a","Finance"` + "\n" +
		`"Plain","","","",""` + "\n"
	assert.Equal(t, want, FeedToCSV(f))
}

func TestFeedToCSV_NoItems(t *testing.T) {
	assert.Equal(t, csvHeader+"\n", FeedToCSV(&Feed{}))
}

func TestExportFilename(t *testing.T) {
	date := time.Date(2025, 4, 9, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, "technology-news-2025-04-09.csv",
		ExportFilename(&Feed{Title: "Technology News!", Date: date}))
	assert.Equal(t, "finance-2025-04-09.csv",
		ExportFilename(&Feed{Date: date, Items: items("Finance")}))
	assert.Equal(t, "news-feed-2025-04-09.csv",
		ExportFilename(&Feed{Title: "???", Date: date}))
}

func TestLoadSamples(t *testing.T) {
	set, err := LoadSamples(nil)
	assert.NoError(t, err)

	now := time.Date(2025, 4, 9, 12, 0, 0, 0, time.UTC)
	got := set.Feeds(now)
	assert.Len(t, got, 3)
	for _, f := range got {
		assert.True(t, f.IsSample(), f.ID)
		assert.Len(t, f.Items, 2)
		assert.Equal(t, f.Category, DominantCategory(f.Items))
	}

	groups := GroupFeeds(got)
	assert.Len(t, groups, 3, "each sample feed has its own category")
	assert.Equal(t, "Technology News", groups[0].Category)

	f, ok := set.Find("sample-2", now)
	assert.True(t, ok)
	assert.Equal(t, "Financial Markets", f.Title)
}

func TestLoadSamples_EmptyFallsBack(t *testing.T) {
	set, err := LoadSamples([]byte("feeds: []\n"))
	assert.NoError(t, err)
	got := set.Feeds(time.Now())
	assert.Len(t, got, 1)
	assert.True(t, got[0].IsSample())
}

func TestLoadSamples_RejectsRealIDs(t *testing.T) {
	_, err := LoadSamples([]byte("feeds:\n  - id: real-1\n"))
	assert.Error(t, err)
}
