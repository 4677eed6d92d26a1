package feed

import (
	"fmt"
	"log/slog"
	"strings"
)

var filterFields = map[string]bool{
	"title":       true,
	"description": true,
	"link":        true,
}

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run drops items rejected by the source filters.
func (f *Filterer) Run(items []NormalizedItem, filters []ConfigFilter) []NormalizedItem {
	if len(filters) == 0 {
		return items
	}

	kept := make([]NormalizedItem, 0, len(items))
	for _, item := range items {
		if reason := f.applyFilters(item, filters); reason != "" {
			slog.Debug("Item filtered", "title", item.Title, "reason", reason)
			continue
		}
		kept = append(kept, item)
	}

	return kept
}

// applyFilters returns a non-empty reason when the item is rejected.
func (f *Filterer) applyFilters(item NormalizedItem, filters []ConfigFilter) string {
	for _, filter := range filters {
		value := f.getFieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matchesFilter(value, exclude) {
				return fmt.Sprintf("Excluded by %s filter: contains '%s'", filter.Field, exclude)
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matchesFilter(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return fmt.Sprintf("Excluded by %s filter: does not contain any of %v", filter.Field, filter.Includes)
			}
		}
	}

	return ""
}

func (f *Filterer) matchesFilter(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) getFieldValue(item NormalizedItem, field string) string {
	switch field {
	case "title":
		return item.Title
	case "description":
		return item.Description
	case "link":
		return item.Link
	default:
		return ""
	}
}
