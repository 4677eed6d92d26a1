package database

import "context"

type SourceRepository interface {
	ListSources(ctx context.Context) ([]Source, error)
	GetSource(ctx context.Context, id string) (*Source, error)
	CountSources(ctx context.Context) (int, error)

	UpsertSource(ctx context.Context, source Source) error
	UpdateSyncState(ctx context.Context, id string, state SyncState) error
}

type ArticleStore interface {
	ListArticles(ctx context.Context, query ArticleQuery) ([]Article, error)
	CountArticles(ctx context.Context, sourceID string) (int, error)

	CreateArticle(ctx context.Context, article Article) error
	UpdateArticle(ctx context.Context, id string, update ArticleUpdate) error
	DeleteArticle(ctx context.Context, id string) error
}
