package feed

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

type Normalizer struct {
	now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{now: time.Now}
}

// Run maps a parsed response into normalized items. baseURL is the source URL,
// used to resolve root-relative thumbnails.
func (n *Normalizer) Run(result *FetchResult, baseURL string) []NormalizedItem {
	if result == nil {
		return nil
	}

	switch result.Format {
	case FormatJSON:
		return n.normalizeJSON(result.JSON, baseURL)
	case FormatXML:
		return n.normalizeXML(result.XML, baseURL)
	default:
		return nil
	}
}

func (n *Normalizer) normalizeJSON(doc any, baseURL string) []NormalizedItem {
	raw, shape := FindItems(doc)
	if shape == "" {
		slog.Debug("No known item shape in JSON response", "url", baseURL)
		return nil
	}

	items := make([]NormalizedItem, 0, len(raw))
	for _, entry := range raw {
		object, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		item := NormalizedItem{
			Title:       CleanText(stringField(object, titleKeys...)),
			Description: CleanText(stringField(object, descriptionKeys...)),
			Link:        stringField(object, linkKeys...),
			Thumbnail:   NormalizeThumbnail(stringField(object, imageKeys...), baseURL),
			PubDate:     n.jsonDate(object),
			GUID:        stringField(object, idKeys...),
		}
		item.DocID = DocID(item.GUID, item.Link, item.Title)
		items = append(items, item)
	}

	return items
}

func (n *Normalizer) normalizeXML(parsed *gofeed.Feed, baseURL string) []NormalizedItem {
	if parsed == nil {
		return nil
	}

	items := make([]NormalizedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry == nil {
			continue
		}

		link := itemLink(entry)
		if link == "" {
			continue
		}

		description := entry.Description
		if strings.TrimSpace(description) == "" {
			description = entry.Content
		}

		item := NormalizedItem{
			Title:       CleanText(entry.Title),
			Description: CleanText(description),
			Link:        link,
			Thumbnail:   itemThumbnail(entry, baseURL),
			PubDate:     n.xmlDate(entry),
			GUID:        strings.TrimSpace(entry.GUID),
		}
		item.DocID = DocID(item.GUID, item.Link, item.Title)
		items = append(items, item)
	}

	return items
}

func itemLink(item *gofeed.Item) string {
	if link := strings.TrimSpace(item.Link); link != "" {
		return link
	}
	for _, link := range item.Links {
		if link = strings.TrimSpace(link); link != "" {
			return link
		}
	}
	return ""
}

func (n *Normalizer) xmlDate(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	for _, raw := range []string{item.Published, item.Updated} {
		if t, ok := parseDate(raw); ok {
			return t
		}
	}
	return n.now().UTC()
}

func (n *Normalizer) jsonDate(object map[string]any) time.Time {
	for _, key := range dateKeys {
		switch value := object[key].(type) {
		case json.Number:
			if seconds, err := value.Int64(); err == nil && seconds > 0 {
				return unixTime(seconds)
			}
		case string:
			if t, ok := parseDate(value); ok {
				return t
			}
		}
	}
	return n.now().UTC()
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// unixTime accepts both second and millisecond timestamps.
func unixTime(v int64) time.Time {
	if v > 1e12 {
		return time.UnixMilli(v).UTC()
	}
	return time.Unix(v, 0).UTC()
}
