package feeds

import (
	"slices"
	"strings"
	"time"
)

// Group is a run of feeds sharing a dominant category, newest first.
type Group struct {
	Category string
	Feeds    []Feed
}

// Newest returns the date of the group's most recent feed.
func (g Group) Newest() time.Time {
	if len(g.Feeds) == 0 {
		return time.Time{}
	}
	return g.Feeds[0].Date
}

// DominantCategory returns the most frequent non-empty item category. Ties go
// to the category seen first; no categories at all yields DefaultCategory.
func DominantCategory(items []NewsItem) string {
	counts := make(map[string]int)
	var order []string
	for _, it := range items {
		cat := strings.TrimSpace(it.Category)
		if cat == "" {
			continue
		}
		if counts[cat] == 0 {
			order = append(order, cat)
		}
		counts[cat]++
	}

	best := DefaultCategory
	bestCount := 0
	for _, cat := range order {
		if counts[cat] > bestCount {
			best, bestCount = cat, counts[cat]
		}
	}
	return best
}

// GroupFeeds sorts feeds by date (newest first, stable for equal dates),
// groups them by dominant category and orders the groups by their newest
// member. The input slice is not modified.
func GroupFeeds(feeds []Feed) []Group {
	sorted := slices.Clone(feeds)
	slices.SortStableFunc(sorted, func(a, b Feed) int {
		return b.Date.Compare(a.Date)
	})

	var groups []Group
	index := make(map[string]int)
	for _, f := range sorted {
		cat := DominantCategory(f.Items)
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, Group{Category: cat})
		}
		groups[i].Feeds = append(groups[i].Feeds, f)
	}

	slices.SortStableFunc(groups, func(a, b Group) int {
		return b.Newest().Compare(a.Newest())
	})
	return groups
}

// FeedIDs lists the IDs of every feed in the groups, in display order.
func FeedIDs(groups []Group) []string {
	var ids []string
	for _, g := range groups {
		for _, f := range g.Feeds {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
