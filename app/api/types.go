package api

import (
	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/tasks"
)

type GeneratorInterface interface {
	Run(source database.Source, articles []database.Article) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	sources   database.SourceRepository
	articles  database.ArticleStore
	generator GeneratorInterface
	registry  *feed.Registry
	scheduler tasks.TaskSchedulerInterface
}

type sourceView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	URL           string            `json:"url"`
	Category      string            `json:"category"`
	Language      string            `json:"language"`
	Filters       []database.Filter `json:"filters"`
	LastFetchedAt string            `json:"last_fetched_at,omitempty"`
	RecentIDs     int               `json:"recent_ids"`
	LatestTitles  []string          `json:"latest_titles,omitempty"`
	Articles      int               `json:"articles"`
}

type articleView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Link        string `json:"link"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	PubDate     string `json:"pub_date,omitempty"`
	FetchedAt   string `json:"fetched_at"`
}
