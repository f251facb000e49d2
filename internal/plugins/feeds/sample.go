package feeds

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed sample_feeds.yaml
var sampleFeedsYAML []byte

// sampleFile mirrors sample_feeds.yaml.
type sampleFile struct {
	Feeds []struct {
		ID       string `yaml:"id"`
		Title    string `yaml:"title"`
		Category string `yaml:"category"`
		AgeHours int    `yaml:"age_hours"`
		Items    []struct {
			Title     string `yaml:"title"`
			Content   string `yaml:"content"`
			Source    string `yaml:"source"`
			SourceURL string `yaml:"source_url"`
		} `yaml:"items"`
	} `yaml:"feeds"`
}

// SampleSet builds preview feeds relative to a clock.
type SampleSet struct {
	file sampleFile
}

// LoadSamples parses preview feed data. Passing nil uses the embedded file.
func LoadSamples(data []byte) (*SampleSet, error) {
	if data == nil {
		data = sampleFeedsYAML
	}
	var f sampleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing sample feeds: %w", err)
	}
	for _, sf := range f.Feeds {
		if !IsSampleID(sf.ID) {
			return nil, fmt.Errorf("sample feed id %q must start with %q", sf.ID, sampleIDPrefix)
		}
	}
	return &SampleSet{file: f}, nil
}

// Feeds returns the preview feeds dated relative to now. When the data is
// empty a single placeholder feed is returned so the preview is never blank.
func (s *SampleSet) Feeds(now time.Time) []Feed {
	if len(s.file.Feeds) == 0 {
		return []Feed{fallbackSample(now)}
	}

	out := make([]Feed, 0, len(s.file.Feeds))
	itemN := 0
	for _, sf := range s.file.Feeds {
		feed := Feed{
			ID:       sf.ID,
			Title:    sf.Title,
			Category: sf.Category,
			Date:     now.Add(-time.Duration(sf.AgeHours) * time.Hour),
		}
		for _, si := range sf.Items {
			itemN++
			url := si.SourceURL
			if url == "" {
				url = "#"
			}
			feed.Items = append(feed.Items, NewsItem{
				ID:        fmt.Sprintf("item-%d", itemN),
				FeedID:    sf.ID,
				Title:     si.Title,
				Content:   si.Content,
				Source:    si.Source,
				SourceURL: url,
				Category:  sf.Category,
			})
		}
		out = append(out, feed)
	}
	return out
}

// Find returns one preview feed by ID.
func (s *SampleSet) Find(id string, now time.Time) (*Feed, bool) {
	for _, f := range s.Feeds(now) {
		if f.ID == id {
			return &f, true
		}
	}
	return nil, false
}

func fallbackSample(now time.Time) Feed {
	return Feed{
		ID:       sampleIDPrefix + "fallback",
		Title:    "Technology Trends",
		Category: "Technology Trends",
		Date:     now,
		Items: []NewsItem{{
			ID:        "item-fallback",
			FeedID:    sampleIDPrefix + "fallback",
			Title:     "Your digest will look like this",
			Content:   "Each morning you get a short summary of the stories that matter from the sources and topics you picked.",
			Source:    "News Digest",
			SourceURL: "#",
			Category:  "Technology Trends",
		}},
	}
}
