package feed

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CleanText decodes entities, strips markup and collapses whitespace.
func CleanText(raw string) string {
	if raw == "" {
		return ""
	}

	text := html.UnescapeString(raw)
	if strings.ContainsAny(text, "<>") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
		if err == nil {
			text = doc.Text()
		}
	}

	return strings.Join(strings.Fields(text), " ")
}

// NormalizeTitle is the identity form of a title: cleaned and lowercased.
func NormalizeTitle(title string) string {
	return strings.ToLower(CleanText(title))
}
