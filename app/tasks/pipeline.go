package tasks

import (
	"fmt"
	"log/slog"

	"github.com/lysyi3m/feedsync/app/cfg"
	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/fetcher"
	"github.com/lysyi3m/feedsync/app/notify"
	"github.com/lysyi3m/feedsync/app/syncer"
)

// NewPipeline wires the production collaborators from configuration.
func NewPipeline(c *cfg.Cfg, sources database.SourceRepository, articles database.ArticleStore) (*Pipeline, error) {
	resolver, err := feed.NewEncodingResolver(c.LegacyCodepage, feed.ArabicGamingProfile)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoding resolver: %w", err)
	}

	var browser fetcher.Launcher
	if !c.BrowserDisabled {
		browser = fetcher.NewChromeLauncher(c.BrowserPath)
	}

	f := fetcher.New(fetcher.Options{
		Profile: fetcher.HeaderProfile{
			UserAgent:      c.UserAgent,
			AcceptLanguage: c.AcceptLanguage,
		},
		Timeout:        c.FetchTimeout,
		MaxRedirects:   c.MaxRedirects,
		BrowserTimeout: c.BrowserTimeout,
		Browser:        browser,
	})

	engine := syncer.NewEngine(articles, sources, syncer.Options{
		Images:        syncer.NewOGScraper(f),
		OGConcurrency: c.OGConcurrency,
		OGTimeout:     c.OGTimeout,
	})

	dispatcher, err := newDispatcher(c)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Fetcher:    f,
		Resolver:   resolver,
		Parser:     feed.NewParser(),
		Normalizer: feed.NewNormalizer(),
		Filterer:   feed.NewFilterer(),
		Syncer:     engine,
		Notifier:   notify.NewFanOut(dispatcher),
	}, nil
}

func newDispatcher(c *cfg.Cfg) (notify.Dispatcher, error) {
	if c.FCMCredentialsFile == "" {
		slog.Info("Push credentials not configured, notifications are only logged")
		return notify.LogDispatcher{}, nil
	}

	dispatcher, err := notify.NewFCMDispatcherFromFile(c.FCMCredentialsFile, notify.FCMOptions{
		ProjectID: c.FCMProjectID,
		Rate:      c.NotifyRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM dispatcher: %w", err)
	}
	return dispatcher, nil
}
