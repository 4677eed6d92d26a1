package feed

import (
	"reflect"
	"testing"
	"time"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestNormalizer() *Normalizer {
	return &Normalizer{now: func() time.Time { return fixedNow }}
}

func parseForTest(t *testing.T, text string) *FetchResult {
	t.Helper()
	result, err := NewParser().Run(text)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	return result
}

const mediaRSS = `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Games</title>
    <item>
      <title>  Media &amp;amp; thumbnail  </title>
      <link>https://example.com/1</link>
      <guid>guid-1</guid>
      <description>&lt;p&gt;Hello   &lt;b&gt;world&lt;/b&gt;&lt;/p&gt;</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
      <media:thumbnail url="http://cdn.example.com/1.jpg"/>
    </item>
    <item>
      <title>Grouped media</title>
      <link>https://example.com/2</link>
      <media:group><media:content url="//cdn.example.com/2.jpg" medium="image"/></media:group>
    </item>
    <item>
      <title>Enclosure</title>
      <link>https://example.com/3</link>
      <enclosure url="https://cdn.example.com/3.png" length="1" type="image/png"/>
    </item>
    <item>
      <title>Inline image</title>
      <link>https://example.com/4</link>
      <description><![CDATA[<img src="/uploads/4.jpg"> text]]></description>
    </item>
    <item>
      <title>Encoded content only</title>
      <link>https://example.com/5</link>
      <content:encoded><![CDATA[<p>Body <img src='ftp://example.com/5.jpg'></p>]]></content:encoded>
    </item>
    <item>
      <title>No link</title>
      <description>Skipped</description>
    </item>
  </channel>
</rss>`

func TestNormalizeXML(t *testing.T) {
	normalizer := newTestNormalizer()
	items := normalizer.Run(parseForTest(t, mediaRSS), "http://example.com/feed.xml")

	if len(items) != 5 {
		t.Fatalf("Expected 5 items (item without link skipped), got %d", len(items))
	}

	first := items[0]
	if first.Title != "Media & thumbnail" {
		t.Errorf("Expected cleaned title, got %q", first.Title)
	}
	if first.Description != "Hello world" {
		t.Errorf("Expected stripped description, got %q", first.Description)
	}
	if first.Thumbnail != "https://cdn.example.com/1.jpg" {
		t.Errorf("Expected upgraded media thumbnail, got %q", first.Thumbnail)
	}
	if !first.PubDate.Equal(time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected parsed pubDate, got %v", first.PubDate)
	}
	if first.DocID != DocID("guid-1", "", "") {
		t.Errorf("Expected docId from guid, got %s", first.DocID)
	}

	expectedThumbs := []string{
		"https://cdn.example.com/1.jpg",
		"https://cdn.example.com/2.jpg",
		"https://cdn.example.com/3.png",
		"https://example.com/uploads/4.jpg",
		"",
	}
	for i, expected := range expectedThumbs {
		if items[i].Thumbnail != expected {
			t.Errorf("Item %d: expected thumbnail %q, got %q", i, expected, items[i].Thumbnail)
		}
	}

	if items[1].PubDate != fixedNow {
		t.Errorf("Expected missing pubDate to default to now, got %v", items[1].PubDate)
	}
	if items[4].Description != "Body" {
		t.Errorf("Expected description from encoded content, got %q", items[4].Description)
	}
	if items[1].DocID != DocID("", "https://example.com/2", "") {
		t.Errorf("Expected docId from link when guid is missing")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	normalizer := newTestNormalizer()

	first := normalizer.Run(parseForTest(t, mediaRSS), "https://example.com/feed.xml")
	second := normalizer.Run(parseForTest(t, mediaRSS), "https://example.com/feed.xml")

	if !reflect.DeepEqual(first, second) {
		t.Error("Expected normalizing the same feed twice to give identical items")
	}
}

func TestNormalizeJSONShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"direct array", `[{"id": 1, "title": "A", "url": "https://example.com/a"}]`},
		{"data wrapper", `{"data": [{"id": 1, "title": "A", "url": "https://example.com/a"}]}`},
		{"data items", `{"data": {"items": [{"id": 1, "title": "A", "url": "https://example.com/a"}]}}`},
		{"data articles", `{"data": {"articles": [{"id": 1, "title": "A", "url": "https://example.com/a"}]}}`},
		{"data news", `{"data": {"news": [{"id": 1, "title": "A", "url": "https://example.com/a"}]}}`},
		{"items", `{"items": [{"id": 1, "title": "A", "url": "https://example.com/a"}]}`},
		{"articles", `{"articles": [{"id": 1, "title": "A", "url": "https://example.com/a"}]}`},
	}

	normalizer := newTestNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := normalizer.Run(parseForTest(t, tt.body), "https://example.com")
			if len(items) != 1 {
				t.Fatalf("Expected 1 item, got %d", len(items))
			}
			if items[0].Title != "A" || items[0].Link != "https://example.com/a" {
				t.Errorf("Unexpected item: %+v", items[0])
			}
			if items[0].DocID != DocID("1", "", "") {
				t.Errorf("Expected docId from numeric id")
			}
		})
	}
}

func TestNormalizeJSONFields(t *testing.T) {
	body := `[{
		"title": {"rendered": "Wordpress &#8211; post"},
		"link": "https://example.com/wp",
		"excerpt": {"rendered": "<p>Short <em>excerpt</em></p>"},
		"jetpack_featured_media_url": "http://example.com/wp.jpg",
		"date": "2024-02-03T04:05:06"
	}, {
		"headline": "Epoch",
		"permalink": "https://example.com/epoch",
		"published_at": 1700000000
	}, "not an object"]`

	items := newTestNormalizer().Run(parseForTest(t, body), "https://example.com")
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}

	wp := items[0]
	if wp.Title != "Wordpress – post" {
		t.Errorf("Expected rendered title, got %q", wp.Title)
	}
	if wp.Description != "Short excerpt" {
		t.Errorf("Expected rendered excerpt, got %q", wp.Description)
	}
	if wp.Thumbnail != "https://example.com/wp.jpg" {
		t.Errorf("Expected https thumbnail, got %q", wp.Thumbnail)
	}
	if wp.PubDate.Year() != 2024 || wp.PubDate.Month() != time.February {
		t.Errorf("Expected parsed date, got %v", wp.PubDate)
	}

	epoch := items[1]
	if !epoch.PubDate.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Expected unix date, got %v", epoch.PubDate)
	}
	if epoch.Description != "" {
		t.Errorf("Expected empty description fallback, got %q", epoch.Description)
	}
}

func TestNormalizeJSONUnknownShape(t *testing.T) {
	items := newTestNormalizer().Run(parseForTest(t, `{"status": "ok"}`), "https://example.com")
	if len(items) != 0 {
		t.Errorf("Expected no items for unknown shape, got %d", len(items))
	}
}

func TestNormalizeThumbnail(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"http://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"//cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg"},
		{"/a.jpg", "https://example.com/a.jpg"},
		{"ftp://example.com/a.jpg", ""},
		{"data:image/png;base64,AAAA", ""},
		{"relative/a.jpg", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeThumbnail(tt.raw, "http://example.com/feed"); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestDocIDPriorityAndDeterminism(t *testing.T) {
	byID := DocID("guid", "https://example.com/a", "Title")
	if byID != DocID("guid", "https://example.com/other", "Other") {
		t.Error("Expected explicit id to take priority")
	}

	byLink := DocID("", "https://example.com/a", "Title")
	if byLink != DocID("  ", "https://example.com/a", "Another") {
		t.Error("Expected link to take priority over title")
	}

	byTitle := DocID("", "", "  Hello   WORLD ")
	if byTitle != DocID("", "", "hello world") {
		t.Error("Expected normalized title identity")
	}
	if byTitle != TitleDocID("Hello World") {
		t.Error("Expected title docId to match the title-only override")
	}

	if len(byID) != docIDLength {
		t.Errorf("Expected %d characters, got %d", docIDLength, len(byID))
	}
	if byID == byLink || byLink == byTitle {
		t.Error("Expected distinct keys to give distinct ids")
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"plain", "plain"},
		{"  spaced \n\t out  ", "spaced out"},
		{"&lt;b&gt;bold&lt;/b&gt; &amp; more", "bold & more"},
		{"<div><p>One</p> <p>Two</p></div>", "One Two"},
	}

	for _, tt := range tests {
		if got := CleanText(tt.input); got != tt.expected {
			t.Errorf("CleanText(%q): expected %q, got %q", tt.input, tt.expected, got)
		}
	}
}
