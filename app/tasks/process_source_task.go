package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/fetcher"
)

// Pipeline holds the collaborators shared by every source task. All of them
// are safe for concurrent use.
type Pipeline struct {
	Fetcher    SourceFetcher
	Resolver   *feed.EncodingResolver
	Parser     *feed.Parser
	Normalizer *feed.Normalizer
	Filterer   *feed.Filterer
	Syncer     Syncer
	Notifier   Notifier
}

type ProcessSourceTask struct {
	Task
	Source   database.Source
	pipeline *Pipeline

	// Sent is the number of notifications delivered by Execute.
	Sent int
}

func NewProcessSourceTask(source database.Source, pipeline *Pipeline) *ProcessSourceTask {
	return &ProcessSourceTask{
		Task:     NewTask(TaskTypeProcessSource, source.Name),
		Source:   source,
		pipeline: pipeline,
	}
}

func (t *ProcessSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, via, err := t.fetchAndParse(ctx)
	if err != nil {
		return err
	}

	items := t.pipeline.Normalizer.Run(result, t.Source.URL)
	total := len(items)
	items = t.pipeline.Filterer.Run(items, t.Source.Filters)

	synced, err := t.pipeline.Syncer.Sync(ctx, t.Source, result.Format, items)
	if err != nil {
		return fmt.Errorf("failed to sync items: %w", err)
	}

	if t.pipeline.Notifier != nil {
		t.Sent = t.pipeline.Notifier.Notify(ctx, t.Source, synced.Notify)
	}

	slog.Info("Task completed",
		"type", "ProcessSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"format", string(result.Format),
		"via", via,
		"total", total,
		"filtered", total-len(items),
		"new", len(synced.NewItems),
		"stored", synced.Persisted,
		"deleted", synced.Deleted,
		"sent", t.Sent)

	return nil
}

// fetchAndParse fetches the source and parses the response. A direct
// response that fails to parse as markup is fetched once more through the
// browser.
func (t *ProcessSourceTask) fetchAndParse(ctx context.Context) (*feed.FetchResult, string, error) {
	resp, err := t.pipeline.Fetcher.Fetch(ctx, t.Source.URL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch source: %w", err)
	}

	result, err := t.parse(resp)
	if err == nil {
		return result, resp.Via, nil
	}

	var parseErr *feed.ParseError
	if !errors.As(err, &parseErr) || !parseErr.Markup || resp.Via != fetcher.ViaDirect {
		return nil, resp.Via, err
	}

	slog.Warn("Response is not parseable markup, retrying through browser", "source", t.SourceName, "error", err)

	resp, err = t.pipeline.Fetcher.Fallback(ctx, t.Source.URL, &fetcher.FetchError{
		Kind: fetcher.KindMarkupUnencoded,
		URL:  t.Source.URL,
		Via:  fetcher.ViaDirect,
		Err:  parseErr,
	})
	if err != nil {
		return nil, fetcher.ViaBrowser, fmt.Errorf("failed to fetch source: %w", err)
	}

	result, err = t.parse(resp)
	if err != nil {
		return nil, resp.Via, err
	}
	return result, resp.Via, nil
}

func (t *ProcessSourceTask) parse(resp *fetcher.Response) (*feed.FetchResult, error) {
	text, strategy := t.pipeline.Resolver.Resolve(resp.Body, resp.Charset)
	slog.Debug("Response decoded", "source", t.SourceName, "strategy", strategy, "via", resp.Via, "bytes", len(resp.Body))

	result, err := t.pipeline.Parser.Run(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return result, nil
}
