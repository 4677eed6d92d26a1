package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/fetcher"
)

// ImageFinder looks up a lead image for an article page.
type ImageFinder interface {
	FindImage(ctx context.Context, link string) (string, error)
}

type PageFetcher interface {
	Direct(ctx context.Context, url string) (*fetcher.Response, error)
}

// OGScraper fetches the article page and reads its Open Graph image.
type OGScraper struct {
	pages     PageFetcher
	extractor *feed.ImageExtractor
}

func NewOGScraper(pages PageFetcher) *OGScraper {
	return &OGScraper{
		pages:     pages,
		extractor: feed.NewImageExtractor(),
	}
}

func (s *OGScraper) FindImage(ctx context.Context, link string) (string, error) {
	if link == "" {
		return "", fmt.Errorf("article has no link")
	}

	resp, err := s.pages.Direct(ctx, link)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article page: %w", err)
	}

	image, err := s.extractor.Run(resp.Body, resp.URL)
	if err != nil {
		return "", err
	}

	slog.Debug("Article image found", "link", link, "image", image)
	return image, nil
}
