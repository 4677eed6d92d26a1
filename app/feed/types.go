package feed

import (
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/feedsync/app/database"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// FetchResult is a parsed response tagged with the format it was parsed as.
// Exactly one of JSON or XML is set.
type FetchResult struct {
	Format Format
	JSON   any
	XML    *gofeed.Feed
}

type NormalizedItem struct {
	Title       string
	Description string
	Link        string
	Thumbnail   string // https URL or empty
	PubDate     time.Time
	GUID        string
	DocID       string
}

// Configuration types

// Config is a source registration read from SOURCES_DIR.
type Config struct {
	ID       string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Name     string         `yaml:"name"`
	Category string         `yaml:"category"`
	Language string         `yaml:"language"`
	Image    string         `yaml:"image"`
	Enabled  *bool          `yaml:"enabled"`
	Filters  []ConfigFilter `yaml:"filters"`
}

func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

type ConfigFilter = database.Filter

// Source converts the registration into the stored source record.
func (c *Config) Source() database.Source {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return database.Source{
		ID:       c.ID,
		Name:     name,
		URL:      c.URL,
		Category: c.Category,
		Language: c.Language,
		ImageURL: c.Image,
		Enabled:  c.IsEnabled(),
		Filters:  c.Filters,
	}
}
