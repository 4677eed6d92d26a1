package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
)

const (
	DefaultOGConcurrency = 3
	DefaultOGTimeout     = 10 * time.Second
)

type Options struct {
	// Images enriches new articles without a thumbnail; nil disables it.
	Images        ImageFinder
	OGConcurrency int
	OGTimeout     time.Duration
}

type Engine struct {
	articles      database.ArticleStore
	sources       database.SourceRepository
	images        ImageFinder
	ogConcurrency int
	ogTimeout     time.Duration
	now           func() time.Time
}

// Result is the outcome of one source sync.
type Result struct {
	// NewItems are the fetched items whose DocID was not recently seen.
	NewItems []feed.NormalizedItem
	// Notify is the subset of NewItems to announce.
	Notify    []feed.NormalizedItem
	State     database.SyncState
	Persisted int
	Deleted   int
}

func NewEngine(articles database.ArticleStore, sources database.SourceRepository, opts Options) *Engine {
	e := &Engine{
		articles:      articles,
		sources:       sources,
		images:        opts.Images,
		ogConcurrency: opts.OGConcurrency,
		ogTimeout:     opts.OGTimeout,
		now:           time.Now,
	}
	if e.ogConcurrency <= 0 {
		e.ogConcurrency = DefaultOGConcurrency
	}
	if e.ogTimeout <= 0 {
		e.ogTimeout = DefaultOGTimeout
	}
	return e
}

// Sync partitions items against the source's recent ids, persists what the
// source format calls for and writes the new sync state. Item-level store
// failures are logged; only a failed state update is returned.
func (e *Engine) Sync(ctx context.Context, source database.Source, format feed.Format, items []feed.NormalizedItem) (*Result, error) {
	if UsesTitleIdentity(source) {
		for i := range items {
			items[i].DocID = feed.TitleDocID(items[i].Title)
		}
	}

	items = Dedupe(items)
	newItems := NewItems(items, source.RecentIDs)

	result := &Result{
		NewItems: newItems,
		State: database.SyncState{
			LastFetchedAt: e.now().UTC(),
			RecentIDs:     MergeRecentIDs(items, source.RecentIDs, RecentIDsLimit),
		},
	}

	if format == feed.FormatJSON {
		result.State.LatestTitles = MergeTitles(newItems, source.LatestTitles, MaxStoredNews)
		result.Notify = newItems

		if err := e.sources.UpdateSyncState(ctx, source.ID, result.State); err != nil {
			return nil, fmt.Errorf("failed to save sync state: %w", err)
		}
		return result, nil
	}

	e.enrich(ctx, newItems)

	var failed map[string]bool
	result.Notify, result.Persisted, failed = e.persist(ctx, source, newItems)
	if len(failed) > 0 {
		// unstored items stay unseen so the next run retries them
		result.State.RecentIDs = MergeRecentIDs(withoutIDs(items, failed), source.RecentIDs, RecentIDsLimit)
	}

	if err := e.sources.UpdateSyncState(ctx, source.ID, result.State); err != nil {
		return nil, fmt.Errorf("failed to save sync state: %w", err)
	}

	result.Deleted = e.cleanup(ctx, source)

	return result, nil
}

// enrich fills missing thumbnails from article pages with bounded concurrency.
func (e *Engine) enrich(ctx context.Context, items []feed.NormalizedItem) {
	if e.images == nil {
		return
	}

	var g errgroup.Group
	g.SetLimit(e.ogConcurrency)

	for i := range items {
		if items[i].Thumbnail != "" || items[i].Link == "" {
			continue
		}
		g.Go(func() error {
			scrapeCtx, cancel := context.WithTimeout(ctx, e.ogTimeout)
			defer cancel()

			image, err := e.images.FindImage(scrapeCtx, items[i].Link)
			if err != nil {
				slog.Debug("No article image", "link", items[i].Link, "error", err)
				return nil
			}
			items[i].Thumbnail = image
			return nil
		})
	}

	g.Wait()
}

// persist stores new items and returns the ones that are in the store
// afterwards, the number actually created and the ids that failed to store.
func (e *Engine) persist(ctx context.Context, source database.Source, items []feed.NormalizedItem) ([]feed.NormalizedItem, int, map[string]bool) {
	stored := make([]feed.NormalizedItem, 0, len(items))
	created := 0
	var failed map[string]bool
	fetchedAt := e.now().UTC()

	for i, item := range items {
		article := database.Article{
			ID:          item.DocID,
			SourceID:    source.ID,
			SourceName:  source.Name,
			Category:    source.Category,
			Language:    source.Language,
			Title:       item.Title,
			Description: item.Description,
			Link:        item.Link,
			Thumbnail:   item.Thumbnail,
			GUID:        item.GUID,
			PubDate:     item.PubDate,
			// feed order is kept when listing newest-first
			FetchedAt: fetchedAt.Add(-time.Duration(i) * time.Microsecond),
		}

		err := e.articles.CreateArticle(ctx, article)
		switch {
		case err == nil:
			created++
			stored = append(stored, item)
		case errors.Is(err, database.ErrAlreadyExists):
			slog.Debug("Article already stored", "source", source.Name, "id", item.DocID)
			stored = append(stored, item)
		default:
			slog.Error("Failed to store article", "source", source.Name, "id", item.DocID, "error", err)
			if failed == nil {
				failed = make(map[string]bool)
			}
			failed[item.DocID] = true
		}
	}

	return stored, created, failed
}

func withoutIDs(items []feed.NormalizedItem, ids map[string]bool) []feed.NormalizedItem {
	kept := make([]feed.NormalizedItem, 0, len(items))
	for _, item := range items {
		if !ids[item.DocID] {
			kept = append(kept, item)
		}
	}
	return kept
}

// cleanup deletes everything past the newest MaxStoredNews articles.
func (e *Engine) cleanup(ctx context.Context, source database.Source) int {
	excess, err := e.articles.ListArticles(ctx, database.ArticleQuery{SourceID: source.ID, Offset: MaxStoredNews})
	if err != nil {
		slog.Error("Failed to list articles for cleanup", "source", source.Name, "error", err)
		return 0
	}

	deleted := 0
	for _, article := range excess {
		if err := e.articles.DeleteArticle(ctx, article.ID); err != nil {
			slog.Error("Failed to delete old article", "source", source.Name, "id", article.ID, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		slog.Debug("Old articles removed", "source", source.Name, "count", deleted)
	}

	return deleted
}
