package feeds

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func items(categories ...string) []NewsItem {
	out := make([]NewsItem, len(categories))
	for i, c := range categories {
		out[i] = NewsItem{Category: c}
	}
	return out
}

func TestDominantCategory(t *testing.T) {
	tests := []struct {
		name  string
		items []NewsItem
		want  string
	}{
		{"no items", nil, DefaultCategory},
		{"no categories", items("", " "), DefaultCategory},
		{"majority", items("Tech", "Finance", "Tech"), "Tech"},
		{"tie goes to first seen", items("Finance", "Tech", "Tech", "Finance"), "Finance"},
		{"blank ignored", items("", "Health"), "Health"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DominantCategory(tt.items); got != tt.want {
				t.Errorf("DominantCategory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGroupFeeds_OrdersGroupsByNewestMember(t *testing.T) {
	d1 := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	d2 := d1.Add(24 * time.Hour)
	d3 := d2.Add(24 * time.Hour)

	in := []Feed{
		{ID: "a1", Date: d1, Items: items("A")},
		{ID: "b", Date: d2, Items: items("B")},
		{ID: "a3", Date: d3, Items: items("A")},
	}

	got := GroupFeeds(in)

	type summary struct {
		Category string
		IDs      []string
	}
	var sums []summary
	for _, g := range got {
		s := summary{Category: g.Category}
		for _, f := range g.Feeds {
			s.IDs = append(s.IDs, f.ID)
		}
		sums = append(sums, s)
	}

	want := []summary{
		{Category: "A", IDs: []string{"a3", "a1"}},
		{Category: "B", IDs: []string{"b"}},
	}
	if diff := cmp.Diff(want, sums); diff != "" {
		t.Errorf("GroupFeeds() mismatch (-want +got):\n%s", diff)
	}

	if in[0].ID != "a1" {
		t.Error("GroupFeeds must not reorder its input")
	}
}

func TestGroupFeeds_StableForEqualDates(t *testing.T) {
	d := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	in := []Feed{
		{ID: "first", Date: d},
		{ID: "second", Date: d},
	}
	got := FeedIDs(GroupFeeds(in))
	if diff := cmp.Diff([]string{"first", "second"}, got); diff != "" {
		t.Errorf("equal dates must keep input order (-want +got):\n%s", diff)
	}
}

func TestGroupFeeds_Empty(t *testing.T) {
	if got := GroupFeeds(nil); len(got) != 0 {
		t.Errorf("GroupFeeds(nil) = %v, want empty", got)
	}
}
