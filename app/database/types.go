package database

import (
	"errors"
	"time"
)

var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)

// Filter is a per-source include/exclude rule, matched case-insensitively.
type Filter struct {
	Field    string   `yaml:"field" json:"field"`
	Includes []string `yaml:"includes" json:"includes,omitempty"`
	Excludes []string `yaml:"excludes" json:"excludes,omitempty"`
}

type Source struct {
	ID        string // Registry identifier derived from the source file name
	Name      string
	URL       string
	Category  string
	Language  string
	ImageURL  string
	Enabled   bool
	Filters   []Filter
	CreatedAt time.Time
	UpdatedAt time.Time

	// Sync state, written only by the pipeline
	LastFetchedAt *time.Time
	RecentIDs     []string
	LatestTitles  []string // JSON-API sources only
}

// SyncState is the per-source state persisted at the end of a sync.
// LatestTitles is left untouched when nil.
type SyncState struct {
	LastFetchedAt time.Time
	RecentIDs     []string
	LatestTitles  []string
}

type Article struct {
	ID          string // docId
	SourceID    string
	SourceName  string
	Category    string
	Language    string
	Title       string
	Description string
	Link        string
	Thumbnail   string
	GUID        string
	PubDate     time.Time
	FetchedAt   time.Time
}

// ArticleQuery selects a source's articles newest-first by FetchedAt.
// Limit 0 means no limit.
type ArticleQuery struct {
	SourceID string
	Limit    int
	Offset   int
}

// ArticleUpdate is a partial update; nil fields are left unchanged.
type ArticleUpdate struct {
	Title       *string
	Description *string
	Thumbnail   *string
}
