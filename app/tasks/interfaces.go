package tasks

import (
	"context"

	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/fetcher"
	"github.com/lysyi3m/feedsync/app/notify"
	"github.com/lysyi3m/feedsync/app/syncer"
)

// SourceFetcher retrieves raw source responses. Fallback re-fetches through
// the headless browser after a failure found past the fetch itself.
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (*fetcher.Response, error)
	Fallback(ctx context.Context, url string, cause *fetcher.FetchError) (*fetcher.Response, error)
}

type Syncer interface {
	Sync(ctx context.Context, source database.Source, format feed.Format, items []feed.NormalizedItem) (*syncer.Result, error)
}

type Notifier interface {
	Notify(ctx context.Context, source database.Source, items []feed.NormalizedItem) int
}

// Runner executes one complete pass over all enabled sources.
type Runner interface {
	Run(ctx context.Context) (*Summary, error)
}

// TaskSchedulerInterface is used by the server to drive periodic runs and
// by the API to trigger one on demand.
//
//	scheduler := NewScheduler(orchestrator, interval)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.Trigger()
type TaskSchedulerInterface interface {
	Start()
	Stop()
	Trigger() error
	Status() RunStatus
}

var (
	_ SourceFetcher = (*fetcher.Fetcher)(nil)
	_ Syncer        = (*syncer.Engine)(nil)
	_ Notifier      = (*notify.FanOut)(nil)
	_ Runner        = (*Orchestrator)(nil)
)
