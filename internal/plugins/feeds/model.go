// Package feeds is the read side of the app: it lists the news feeds produced
// for a submission, groups them by category for display, exports them as CSV
// and accepts newly generated feeds from the automation workflow.
package feeds

import (
	"strings"
	"time"
)

// DefaultCategory labels a feed whose items carry no category.
const DefaultCategory = "News Summary"

// sampleIDPrefix marks preview feeds that only ever exist in the page.
const sampleIDPrefix = "sample-"

// Feed is one generated digest, tied to the submission it was produced for.
type Feed struct {
	ID           string     `json:"id"`
	SubmissionID string     `json:"submission_id"`
	Title        string     `json:"title"`
	Category     string     `json:"category"`
	Date         time.Time  `json:"date"`
	Items        []NewsItem `json:"news_items"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewsItem is a single story inside a feed.
type NewsItem struct {
	ID        string `json:"id"`
	FeedID    string `json:"feed_id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url"`
	Category  string `json:"category"`
}

// IsSample reports whether the feed is preview data.
func (f *Feed) IsSample() bool {
	return IsSampleID(f.ID)
}

// IsSampleID reports whether id names a preview feed.
func IsSampleID(id string) bool {
	return strings.HasPrefix(id, sampleIDPrefix)
}

// DisplayTitle is the card heading: the explicit title, else the grouping
// category.
func (f *Feed) DisplayTitle() string {
	if t := strings.TrimSpace(f.Title); t != "" {
		return t
	}
	return DominantCategory(f.Items)
}

// IngestRequest is the body the automation workflow posts for a new feed.
type IngestRequest struct {
	SubmissionID string       `json:"submission_id"`
	Title        string       `json:"title"`
	Category     string       `json:"category"`
	Date         string       `json:"date"`
	Items        []IngestItem `json:"news_items"`
}

// IngestItem is one story in an IngestRequest.
type IngestItem struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Source    string `json:"source"`
	SourceURL string `json:"source_url"`
	Category  string `json:"category"`
}

// Context says which feeds a viewer is looking at. An empty SubmissionID
// with Latest unset means there is nothing to show.
type Context struct {
	SubmissionID string
	Latest       bool
}

// HasSubmission reports whether the view is scoped to one submission.
func (c Context) HasSubmission() bool { return c.SubmissionID != "" }

// Active reports whether there is anything to query at all.
func (c Context) Active() bool { return c.HasSubmission() || c.Latest }
