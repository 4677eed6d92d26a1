package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var imageMetaSelectors = []string{
	`meta[property="og:image:secure_url"]`,
	`meta[property="og:image"]`,
	`meta[name="og:image"]`,
	`meta[name="twitter:image"]`,
	`meta[property="twitter:image"]`,
}

// ImageExtractor finds the lead image of an article page.
type ImageExtractor struct{}

func NewImageExtractor() *ImageExtractor {
	return &ImageExtractor{}
}

// Run returns the page's Open Graph image as an https URL. When the page
// carries no image meta tag the readability lead image is used instead.
func (e *ImageExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	for _, selector := range imageMetaSelectors {
		content, ok := doc.Find(selector).First().Attr("content")
		if !ok {
			continue
		}
		if image := NormalizeThumbnail(content, pageURL); image != "" {
			return image, nil
		}
	}

	parsedURL, _ := url.Parse(pageURL)
	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract article: %w", err)
	}

	if image := NormalizeThumbnail(article.Image, pageURL); image != "" {
		slog.Debug("Lead image taken from article body", "url", pageURL)
		return image, nil
	}

	return "", fmt.Errorf("no image found")
}
