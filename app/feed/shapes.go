package feed

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ShapeMatcher locates the item array inside a decoded JSON document.
type ShapeMatcher struct {
	Name    string
	Match   func(doc any) bool
	Extract func(doc any) []any
}

// Shapes is tried in order; the first matching shape wins.
var Shapes = []ShapeMatcher{
	{Name: "array", Match: isArray, Extract: asArray},
	pathShape("data"),
	pathShape("data", "items"),
	pathShape("data", "articles"),
	pathShape("data", "news"),
	pathShape("items"),
	pathShape("articles"),
}

var (
	idKeys          = []string{"id", "_id", "guid"}
	linkKeys        = []string{"link", "url", "permalink"}
	titleKeys       = []string{"title", "name", "headline"}
	descriptionKeys = []string{"excerpt", "description", "summary", "content"}
	imageKeys       = []string{"thumbnail", "image", "jetpack_featured_media_url", "featured_image", "cover"}
	dateKeys        = []string{"pubDate", "date", "publishedAt", "published_at", "created_at"}
)

// FindItems returns the raw items of doc using the first shape that matches.
func FindItems(doc any) ([]any, string) {
	for _, shape := range Shapes {
		if shape.Match(doc) {
			return shape.Extract(doc), shape.Name
		}
	}
	return nil, ""
}

func pathShape(path ...string) ShapeMatcher {
	return ShapeMatcher{
		Name:    strings.Join(path, "."),
		Match:   func(doc any) bool { return isArray(lookup(doc, path...)) },
		Extract: func(doc any) []any { return asArray(lookup(doc, path...)) },
	}
}

func lookup(doc any, path ...string) any {
	current := doc
	for _, key := range path {
		object, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = object[key]
	}
	return current
}

func isArray(v any) bool {
	_, ok := v.([]any)
	return ok
}

func asArray(v any) []any {
	items, _ := v.([]any)
	return items
}

// stringField returns the first non-empty string value among keys. Objects of
// the form {"rendered": "..."}, {"url": "..."} or {"href": "..."} are unwrapped.
func stringField(object map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := stringValue(object[key]); s != "" {
			return s
		}
	}
	return ""
}

func stringValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case map[string]any:
		for _, key := range []string{"rendered", "url", "href", "src", "#text"} {
			if s := stringValue(value[key]); s != "" {
				return s
			}
		}
	case []any:
		if len(value) > 0 {
			return stringValue(value[0])
		}
	}
	return ""
}
