package feed

import (
	"errors"
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <guid>item-1</guid>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	result, err := parser.Run(rssData)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Format != FormatXML {
		t.Fatalf("Expected xml format, got %s", result.Format)
	}
	if result.XML.Title != "Test Feed" {
		t.Errorf("Expected title 'Test Feed', got: %s", result.XML.Title)
	}
	if len(result.XML.Items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(result.XML.Items))
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
  <entry>
    <title>Entry</title>
    <link href="https://example.com/entry"/>
    <id>urn:uuid:1</id>
    <updated>2024-01-02T03:04:05Z</updated>
  </entry>
</feed>`

	result, err := NewParser().Run(atomData)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Format != FormatXML || len(result.XML.Items) != 1 {
		t.Fatalf("Expected one xml item, got %+v", result)
	}
	if result.XML.Items[0].Link != "https://example.com/entry" {
		t.Errorf("Expected entry link, got %s", result.XML.Items[0].Link)
	}
}

func TestParseJSON(t *testing.T) {
	result, err := NewParser().Run(`{"data": [{"title": "A", "url": "https://example.com/a"}]}`)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if result.Format != FormatJSON {
		t.Fatalf("Expected json format, got %s", result.Format)
	}
	if _, ok := result.JSON.(map[string]any); !ok {
		t.Errorf("Expected decoded object, got %T", result.JSON)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		format Format
	}{
		{"array", `[{"title": "x"}]`, FormatJSON},
		{"object", `{"items": []}`, FormatJSON},
		{"bom and whitespace", "\ufeff  \n[1]", FormatJSON},
		{"rss envelope", `{"rss": {"channel": {}}}`, FormatXML},
		{"atom envelope", `{"feed": {"entry": []}}`, FormatXML},
		{"xml", `<?xml version="1.0"?><rss/>`, FormatXML},
		{"invalid json", `{"title": `, FormatXML},
		{"trailing data", `{} {}`, FormatXML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.text); got != tt.format {
				t.Errorf("Expected %s, got %s", tt.format, got)
			}
		})
	}
}

func TestParseBareAmpersand(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>GPUs</title>
<item><title>AMD &Radeon and Tom &amp; Jerry</title><link>https://example.com/1</link></item>
</channel></rss>`

	result, err := NewParser().Run(rssData)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(result.XML.Items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(result.XML.Items))
	}
}

func TestParseRepairsControlCharacters(t *testing.T) {
	rssData := "<?xml version=\"1.0\"?>\n<rss version=\"2.0\"><channel><title>Feed</title>" +
		"<item><title>Broken\x01 title</title><link>https://example.com/1</link></item></channel></rss>"

	result, err := NewParser().Run(rssData)
	if err != nil {
		t.Fatalf("Expected repair to recover, got: %v", err)
	}
	if result.XML.Items[0].Title != "Broken title" {
		t.Errorf("Expected control character removed, got %q", result.XML.Items[0].Title)
	}
}

func TestParseErrorMarkup(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Access denied</title></head><body>Blocked</body></html>`

	_, err := NewParser().Run(html)
	if err == nil {
		t.Fatal("Expected error for HTML page")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %T", err)
	}
	if !parseErr.Markup {
		t.Error("Expected HTML page to be reported as markup failure")
	}
}

func TestParseErrorNotXML(t *testing.T) {
	_, err := NewParser().Run("service unavailable")

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if parseErr.Markup {
		t.Error("Expected plain text not to be reported as markup failure")
	}
	if !errors.Is(err, errNotXML) {
		t.Errorf("Expected original error to be kept, got %v", parseErr.Err)
	}
}
