package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath     string
	SourcesDir string

	// Fetching
	UserAgent      string
	AcceptLanguage string
	FetchTimeout   time.Duration
	MaxRedirects   int
	LegacyCodepage string

	// Headless browser fallback
	BrowserDisabled bool
	BrowserPath     string
	BrowserTimeout  time.Duration

	// Pipeline
	MaxConcurrency int
	OGTimeout      time.Duration
	OGConcurrency  int

	// Notifications
	FCMCredentialsFile string
	FCMProjectID       string
	NotifyRate         float64

	// Server
	Port              string
	BaseUrl           string
	APIAccessKey      string
	SchedulerInterval time.Duration

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
