package feeds

import (
	"regexp"
	"strings"
)

// csvHeader is the first line of every export.
const csvHeader = "Title,Content,Source,Source URL,Category"

// FeedToCSV renders one row per news item. Every field is quoted and inner
// quotes are doubled, so spreadsheets never split content on its commas.
func FeedToCSV(f *Feed) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	b.WriteString("\n")
	for _, it := range f.Items {
		fields := []string{it.Title, it.Content, it.Source, it.SourceURL, it.Category}
		for i, v := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(quoteCSV(v))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func quoteCSV(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// ExportFilename returns "<slug>-<YYYY-MM-DD>.csv" for the feed.
func ExportFilename(f *Feed) string {
	slug := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(f.DisplayTitle()), "-"), "-")
	if slug == "" {
		slug = "news-feed"
	}
	return slug + "-" + f.Date.UTC().Format("2006-01-02") + ".csv"
}
