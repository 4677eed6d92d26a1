package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/feedsync/app/cfg"
	"github.com/lysyi3m/feedsync/app/database"
	"github.com/lysyi3m/feedsync/app/feed"
	"github.com/lysyi3m/feedsync/app/syncer"
	"github.com/lysyi3m/feedsync/app/tasks"
)

const maxPageSize = 100

func NewHandler(registry *feed.Registry, sources database.SourceRepository,
	articles database.ArticleStore, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		sources:   sources,
		articles:  articles,
		generator: feed.NewGenerator(),
		registry:  registry,
		scheduler: scheduler,
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	source, err := h.sources.GetSource(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if source == nil {
		c.Status(http.StatusNotFound)
		return
	}

	articles, err := h.articles.ListArticles(c.Request.Context(), database.ArticleQuery{SourceID: id, Limit: syncer.MaxStoredNews})
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "source", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(*source, articles)
	if err != nil {
		slog.Error("RSS generation error", "source", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(articles)))
	c.Header("X-Feed-Name", source.Name)
	if source.LastFetchedAt != nil {
		c.Header("X-Last-Updated", source.LastFetchedAt.Format(time.RFC3339))
	}

	c.String(http.StatusOK, rss)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
	}

	if count, err := h.sources.CountSources(c.Request.Context()); err == nil {
		health["sources"] = count
	}

	if h.registry != nil {
		health["loaded_configurations"] = h.registry.GetConfigCount()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"last_run": nil})
		return
	}

	c.JSON(http.StatusOK, gin.H{"last_run": h.scheduler.Status()})
}

func (h *Handler) ListSources(c *gin.Context) {
	ctx := c.Request.Context()

	sources, err := h.sources.ListSources(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]sourceView, 0, len(sources))
	for _, source := range sources {
		view := sourceView{
			ID:           source.ID,
			Name:         source.Name,
			URL:          source.URL,
			Category:     source.Category,
			Language:     source.Language,
			Filters:      source.Filters,
			RecentIDs:    len(source.RecentIDs),
			LatestTitles: source.LatestTitles,
		}
		if source.LastFetchedAt != nil {
			view.LastFetchedAt = source.LastFetchedAt.In(time.Local).Format(time.RFC3339)
		}
		if count, err := h.articles.CountArticles(ctx, source.ID); err == nil {
			view.Articles = count
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": views,
		"total":   len(views),
	})
}

func (h *Handler) ListArticles(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	source, err := h.sources.GetSource(ctx, id)
	if err != nil {
		slog.Error("Database error", "operation", "get_source", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if source == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Source not found"})
		return
	}

	limit, err := queryInt(c, "limit", syncer.MaxStoredNews)
	if err != nil || limit < 1 || limit > maxPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset parameter"})
		return
	}

	articles, err := h.articles.ListArticles(ctx, database.ArticleQuery{SourceID: id, Limit: limit, Offset: offset})
	if err != nil {
		slog.Error("Database error", "operation", "list_articles", "source", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]articleView, 0, len(articles))
	for _, article := range articles {
		view := articleView{
			ID:          article.ID,
			Title:       article.Title,
			Description: article.Description,
			Link:        article.Link,
			Thumbnail:   article.Thumbnail,
			FetchedAt:   article.FetchedAt.In(time.Local).Format(time.RFC3339),
		}
		if !article.PubDate.IsZero() {
			view.PubDate = article.PubDate.In(time.Local).Format(time.RFC3339)
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"source":   gin.H{"id": source.ID, "name": source.Name},
		"articles": views,
		"limit":    limit,
		"offset":   offset,
	})
}

func (h *Handler) APITriggerRun(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
		return
	}

	if err := h.scheduler.Trigger(); err != nil {
		if errors.Is(err, tasks.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "Run already in progress"})
			return
		}
		if errors.Is(err, tasks.ErrSchedulerStopped) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scheduler not running"})
			return
		}
		slog.Error("Error triggering run", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to trigger run", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Run started",
	})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
