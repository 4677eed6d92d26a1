package syncer

import (
	"strings"

	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
)

const (
	MaxStoredNews  = 40
	RecentIDsLimit = 100

	// titleIdentityMarker names the source whose article links rotate between
	// fetches. Its items are identified by title alone.
	titleIdentityMarker = "truegaming"
)

// UsesTitleIdentity reports whether source items are keyed by title.
func UsesTitleIdentity(source database.Source) bool {
	return strings.Contains(strings.ToLower(source.Name), titleIdentityMarker) ||
		strings.Contains(strings.ToLower(source.URL), titleIdentityMarker)
}

// Dedupe collapses items sharing a DocID. The last occurrence wins but keeps
// the position of the first.
func Dedupe(items []feed.NormalizedItem) []feed.NormalizedItem {
	index := make(map[string]int, len(items))
	unique := make([]feed.NormalizedItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.DocID]; ok {
			unique[i] = item
			continue
		}
		index[item.DocID] = len(unique)
		unique = append(unique, item)
	}
	return unique
}

// NewItems returns the items whose DocID is not in recentIDs, in input order.
func NewItems(items []feed.NormalizedItem, recentIDs []string) []feed.NormalizedItem {
	seen := make(map[string]bool, len(recentIDs))
	for _, id := range recentIDs {
		seen[id] = true
	}

	var fresh []feed.NormalizedItem
	for _, item := range items {
		if !seen[item.DocID] {
			fresh = append(fresh, item)
		}
	}
	return fresh
}

// MergeRecentIDs puts this fetch's ids before the prior ones, drops
// duplicates and truncates to limit.
func MergeRecentIDs(items []feed.NormalizedItem, prior []string, limit int) []string {
	ids := make([]string, 0, len(items)+len(prior))
	for _, item := range items {
		ids = append(ids, item.DocID)
	}
	ids = append(ids, prior...)
	return uniqueTruncated(ids, limit)
}

// MergeTitles prepends the titles of new items not already listed and
// truncates to limit.
func MergeTitles(newItems []feed.NormalizedItem, prior []string, limit int) []string {
	listed := make(map[string]bool, len(prior))
	for _, title := range prior {
		listed[title] = true
	}

	titles := make([]string, 0, len(newItems)+len(prior))
	for _, item := range newItems {
		if item.Title == "" || listed[item.Title] {
			continue
		}
		listed[item.Title] = true
		titles = append(titles, item.Title)
	}
	titles = append(titles, prior...)

	if len(titles) > limit {
		titles = titles[:limit]
	}
	return titles
}

func uniqueTruncated(values []string, limit int) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, min(len(values), limit))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}
