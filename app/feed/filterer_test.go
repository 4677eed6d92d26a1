package feed

import (
	"testing"
)

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	items := []NormalizedItem{
		{Title: "Test Item 1", Description: "Test description"},
		{Title: "Test Item 2", Description: "Another description"},
	}

	result := filterer.Run(items, nil)

	if len(result) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result))
	}
}

func TestFilterer_TitleIncludeFilter(t *testing.T) {
	filterer := NewFilterer()

	items := []NormalizedItem{
		{Title: "Breaking News: Important Update"},
		{Title: "Sports Update"},
		{Title: "Weather Report"},
	}

	filters := []ConfigFilter{
		{Field: "title", Includes: []string{"news", "update"}},
	}

	result := filterer.Run(items, filters)

	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result))
	}
	if result[0].Title != "Breaking News: Important Update" || result[1].Title != "Sports Update" {
		t.Errorf("Unexpected items kept: %+v", result)
	}
}

func TestFilterer_CombinedIncludeExclude(t *testing.T) {
	filterer := NewFilterer()

	items := []NormalizedItem{
		{Title: "Tech News Update"},
		{Title: "Tech Advertisement"},
		{Title: "Sports News"},
		{Title: "Weather Report"},
	}

	filters := []ConfigFilter{
		{
			Field:    "title",
			Includes: []string{"tech", "news"},
			Excludes: []string{"advertisement"},
		},
	}

	result := filterer.Run(items, filters)

	if len(result) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(result))
	}
	if result[0].Title != "Tech News Update" {
		t.Errorf("Expected 'Tech News Update', got '%s'", result[0].Title)
	}
	if result[1].Title != "Sports News" {
		t.Errorf("Expected 'Sports News', got '%s'", result[1].Title)
	}
}

func TestFilterer_MultipleFields(t *testing.T) {
	filterer := NewFilterer()

	items := []NormalizedItem{
		{Title: "News Update", Link: "https://example.com/tech/1"},
		{Title: "News Promo", Link: "https://example.com/sponsored/2"},
		{Title: "Random Article", Link: "https://example.com/tech/3"},
	}

	filters := []ConfigFilter{
		{Field: "title", Includes: []string{"news"}},
		{Field: "link", Excludes: []string{"/sponsored/"}},
	}

	result := filterer.Run(items, filters)

	if len(result) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result))
	}
	if result[0].Title != "News Update" {
		t.Errorf("Expected 'News Update', got '%s'", result[0].Title)
	}
}

func TestFilterer_CaseInsensitive(t *testing.T) {
	filterer := NewFilterer()

	items := []NormalizedItem{
		{Title: "BREAKING NEWS UPDATE"},
		{Title: "tech announcement"},
		{Title: "Sports Report"},
	}

	filters := []ConfigFilter{
		{Field: "title", Includes: []string{"News", "TECH"}},
	}

	result := filterer.Run(items, filters)

	if len(result) != 2 {
		t.Errorf("Expected 2 items kept (case insensitive), got %d", len(result))
	}
}

func TestFilterer_UnknownFieldRejects(t *testing.T) {
	filterer := NewFilterer()

	items := []NormalizedItem{
		{Title: "Test Article", Description: "Test description"},
	}

	filters := []ConfigFilter{
		{Field: "unknown_field", Includes: []string{"test"}},
	}

	result := filterer.Run(items, filters)

	if len(result) != 0 {
		t.Errorf("Item should be filtered when using unknown field")
	}
}

func TestFilterer_PreservesItemData(t *testing.T) {
	filterer := NewFilterer()

	items := []NormalizedItem{
		{
			GUID:        "test-guid-1",
			Title:       "Test Article",
			Link:        "https://example.com/1",
			Description: "Test description",
			Thumbnail:   "https://example.com/1.jpg",
			DocID:       "abc",
		},
	}

	result := filterer.Run(items, []ConfigFilter{{Field: "description", Includes: []string{"test"}}})

	if len(result) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result))
	}
	if result[0] != items[0] {
		t.Errorf("Expected item unchanged, got %+v", result[0])
	}
}
