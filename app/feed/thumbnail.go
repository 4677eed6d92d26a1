package feed

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src\s*=\s*["']([^"']+)["']`)

// itemThumbnail collects thumbnail candidates in priority order and returns the
// first one that survives normalization.
func itemThumbnail(item *gofeed.Item, baseURL string) string {
	for _, candidate := range thumbnailCandidates(item) {
		if normalized := NormalizeThumbnail(candidate, baseURL); normalized != "" {
			return normalized
		}
	}
	return ""
}

func thumbnailCandidates(item *gofeed.Item) []string {
	var candidates []string

	if media, ok := item.Extensions["media"]; ok {
		candidates = append(candidates, mediaURLs(media)...)
		for _, group := range media["group"] {
			candidates = append(candidates, mediaURLs(group.Children)...)
		}
	}

	if item.Image != nil && item.Image.URL != "" {
		candidates = append(candidates, item.Image.URL)
	}
	for _, enclosure := range item.Enclosures {
		if enclosure == nil || enclosure.URL == "" {
			continue
		}
		if enclosure.Type == "" || strings.HasPrefix(enclosure.Type, "image/") {
			candidates = append(candidates, enclosure.URL)
		}
	}

	for _, body := range []string{item.Description, item.Content} {
		if m := imgSrcPattern.FindStringSubmatch(body); m != nil {
			candidates = append(candidates, m[1])
		}
	}

	return candidates
}

func mediaURLs(elements map[string][]ext.Extension) []string {
	var urls []string
	for _, e := range elements["thumbnail"] {
		if u := e.Attrs["url"]; u != "" {
			urls = append(urls, u)
		}
	}
	for _, e := range elements["content"] {
		medium := e.Attrs["medium"]
		mime := e.Attrs["type"]
		if medium != "" && medium != "image" {
			continue
		}
		if mime != "" && !strings.HasPrefix(mime, "image/") {
			continue
		}
		if u := e.Attrs["url"]; u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// NormalizeThumbnail makes raw an absolute https URL or returns "".
// Protocol-relative and root-relative URLs are resolved, http is upgraded.
func NormalizeThumbnail(raw, baseURL string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case strings.HasPrefix(raw, "/"):
		origin := originOf(baseURL)
		if origin == "" {
			return ""
		}
		raw = origin + raw
	case strings.HasPrefix(strings.ToLower(raw), "http://"):
		raw = "https://" + raw[len("http://"):]
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		return ""
	}
	return parsed.String()
}

func originOf(baseURL string) string {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return "https://" + parsed.Host
}
