package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/feedsync.db" description:"SQLite database file"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source registration files"`

	// Fetching
	UserAgent      string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests (browser profile by default)"`
	AcceptLanguage string `long:"accept-language" env:"ACCEPT_LANGUAGE" default:"ar,en-US;q=0.9,en;q=0.8" description:"Accept-Language header sent with every fetch"`
	FetchTimeout   int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Direct fetch timeout in seconds"`
	MaxRedirects   int    `long:"max-redirects" env:"MAX_REDIRECTS" default:"5" description:"Maximum redirects followed per fetch"`
	LegacyCodepage string `long:"legacy-codepage" env:"LEGACY_CODEPAGE" default:"windows-1256" description:"Single-byte codepage tried when decoding responses"`

	// Headless browser fallback
	BrowserDisabled bool   `long:"browser-disabled" env:"BROWSER_DISABLED" description:"Disable the headless browser fallback"`
	BrowserPath     string `long:"browser-path" env:"BROWSER_PATH" description:"Path to the Chrome/Chromium executable"`
	BrowserTimeout  int    `long:"browser-timeout" env:"BROWSER_TIMEOUT" default:"60" description:"Browser navigation timeout in seconds"`

	// Pipeline
	MaxConcurrency int `long:"max-concurrency" env:"MAX_CONCURRENCY" default:"3" description:"Number of sources processed concurrently"`
	OGTimeout      int `long:"og-timeout" env:"OG_TIMEOUT" default:"10" description:"Open Graph image scrape timeout in seconds"`
	OGConcurrency  int `long:"og-concurrency" env:"OG_CONCURRENCY" default:"3" description:"Concurrent Open Graph image scrapes per source"`

	// Notifications
	FCMCredentialsFile string  `long:"fcm-credentials" env:"FCM_CREDENTIALS_FILE" description:"Firebase service account JSON file (notifications are only logged when empty)"`
	FCMProjectID       string  `long:"fcm-project" env:"FCM_PROJECT_ID" description:"Firebase project id (defaults to the service account's project)"`
	NotifyRate         float64 `long:"notify-rate" env:"NOTIFY_RATE" default:"20" description:"Maximum notifications sent per second"`

	// Server
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl           string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://feeds.example.com)"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"900" description:"Interval between pipeline runs in seconds"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Riyadh)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		DBPath:             raw.DBPath,
		SourcesDir:         raw.SourcesDir,
		UserAgent:          cmp.Or(raw.UserAgent, defaultUserAgent),
		AcceptLanguage:     raw.AcceptLanguage,
		FetchTimeout:       seconds(raw.FetchTimeout),
		MaxRedirects:       raw.MaxRedirects,
		LegacyCodepage:     raw.LegacyCodepage,
		BrowserDisabled:    raw.BrowserDisabled,
		BrowserPath:        raw.BrowserPath,
		BrowserTimeout:     seconds(raw.BrowserTimeout),
		MaxConcurrency:     raw.MaxConcurrency,
		OGTimeout:          seconds(raw.OGTimeout),
		OGConcurrency:      raw.OGConcurrency,
		FCMCredentialsFile: raw.FCMCredentialsFile,
		FCMProjectID:       raw.FCMProjectID,
		NotifyRate:         raw.NotifyRate,
		Port:               raw.Port,
		BaseUrl:            raw.BaseUrl,
		APIAccessKey:       raw.APIAccessKey,
		SchedulerInterval:  seconds(raw.SchedulerInterval),
		Timezone:           raw.Timezone,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}
}

func (c *Cfg) validate() error {
	positive := map[string]int{
		"max concurrency": c.MaxConcurrency,
		"og concurrency":  c.OGConcurrency,
	}
	for name, value := range positive {
		if value < 1 {
			return fmt.Errorf("%s must be at least 1", name)
		}
	}

	if c.MaxRedirects < 0 {
		return fmt.Errorf("max redirects must be non-negative")
	}
	if c.FetchTimeout <= 0 || c.BrowserTimeout <= 0 || c.OGTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}

	return nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
