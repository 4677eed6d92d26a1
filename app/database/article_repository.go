package database

import (
	"context"
	"fmt"
	"strings"
)

const articleColumns = `id, source_id, source_name, category, language, title, description,
	link, thumbnail, guid, pub_date, fetched_at`

type ArticleRepo struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepo {
	return &ArticleRepo{db: db}
}

func (r *ArticleRepo) ListArticles(ctx context.Context, query ArticleQuery) ([]Article, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+articleColumns+`
		FROM articles
		WHERE source_id = ?
		ORDER BY fetched_at DESC, pub_date DESC, id
		LIMIT ? OFFSET ?
	`, query.SourceID, limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var (
			article   Article
			pubDate   string
			fetchedAt string
		)
		err := rows.Scan(
			&article.ID, &article.SourceID, &article.SourceName, &article.Category, &article.Language,
			&article.Title, &article.Description, &article.Link, &article.Thumbnail, &article.GUID,
			&pubDate, &fetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article row: %w", err)
		}
		if article.PubDate, err = parseTime(pubDate); err != nil {
			return nil, err
		}
		if article.FetchedAt, err = parseTime(fetchedAt); err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating article rows: %w", err)
	}

	return articles, nil
}

func (r *ArticleRepo) CountArticles(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles WHERE source_id = ?", sourceID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get article count: %w", err)
	}
	return count, nil
}

// CreateArticle inserts an article keyed by its docId. An existing id yields
// ErrAlreadyExists and leaves the stored article unchanged.
func (r *ArticleRepo) CreateArticle(ctx context.Context, article Article) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (`+articleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, article.ID, article.SourceID, article.SourceName, article.Category, article.Language,
		article.Title, article.Description, article.Link, article.Thumbnail, article.GUID,
		formatTime(article.PubDate), formatTime(article.FetchedAt))
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article %s: %w", article.ID, ErrAlreadyExists)
	}

	return nil
}

func (r *ArticleRepo) UpdateArticle(ctx context.Context, id string, update ArticleUpdate) error {
	var (
		sets []string
		args []any
	)
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.Thumbnail != nil {
		sets = append(sets, "thumbnail = ?")
		args = append(args, *update.Thumbnail)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	result, err := r.db.ExecContext(ctx, "UPDATE articles SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article %s: %w", id, ErrNotFound)
	}

	return nil
}

func (r *ArticleRepo) DeleteArticle(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	return nil
}
