package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const sourceColumns = `id, name, url, category, language, image_url, enabled, filters,
	last_fetched_at, recent_ids, latest_titles, created_at, updated_at`

type SourceRepo struct {
	db *DB
}

func NewSourceRepository(db *DB) *SourceRepo {
	return &SourceRepo{db: db}
}

// ListSources returns enabled sources ordered by id.
func (r *SourceRepo) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE enabled = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceRepo) GetSource(ctx context.Context, id string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sourceColumns+` FROM sources WHERE id = ?`, id)

	source, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return source, nil
}

func (r *SourceRepo) CountSources(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sources").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get source count: %w", err)
	}
	return count, nil
}

// UpsertSource writes registry metadata. Sync state columns are never touched.
func (r *SourceRepo) UpsertSource(ctx context.Context, source Source) error {
	filters, err := json.Marshal(nonNilFilters(source.Filters))
	if err != nil {
		return fmt.Errorf("failed to encode filters: %w", err)
	}

	now := formatTime(time.Now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, url, category, language, image_url, enabled, filters, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			url = excluded.url,
			category = excluded.category,
			language = excluded.language,
			image_url = excluded.image_url,
			enabled = excluded.enabled,
			filters = excluded.filters,
			updated_at = excluded.updated_at
	`, source.ID, source.Name, source.URL, source.Category, source.Language, source.ImageURL,
		source.Enabled, string(filters), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert source: %w", err)
	}

	return nil
}

func (r *SourceRepo) UpdateSyncState(ctx context.Context, id string, state SyncState) error {
	recentIDs, err := json.Marshal(nonNilStrings(state.RecentIDs))
	if err != nil {
		return fmt.Errorf("failed to encode recent ids: %w", err)
	}

	query := `UPDATE sources SET last_fetched_at = ?, recent_ids = ?, updated_at = ? WHERE id = ?`
	args := []any{formatTime(state.LastFetchedAt), string(recentIDs), formatTime(time.Now()), id}

	if state.LatestTitles != nil {
		latestTitles, err := json.Marshal(state.LatestTitles)
		if err != nil {
			return fmt.Errorf("failed to encode latest titles: %w", err)
		}
		query = `UPDATE sources SET last_fetched_at = ?, recent_ids = ?, latest_titles = ?, updated_at = ? WHERE id = ?`
		args = []any{formatTime(state.LastFetchedAt), string(recentIDs), string(latestTitles), formatTime(time.Now()), id}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update sync state: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source %s: %w", id, ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var (
		source        Source
		filters       string
		lastFetchedAt sql.NullString
		recentIDs     string
		latestTitles  string
		createdAt     string
		updatedAt     string
	)

	err := row.Scan(
		&source.ID, &source.Name, &source.URL, &source.Category, &source.Language, &source.ImageURL,
		&source.Enabled, &filters, &lastFetchedAt, &recentIDs, &latestTitles, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan source row: %w", err)
	}

	if err := json.Unmarshal([]byte(filters), &source.Filters); err != nil {
		return nil, fmt.Errorf("failed to decode filters of %s: %w", source.ID, err)
	}
	if err := json.Unmarshal([]byte(recentIDs), &source.RecentIDs); err != nil {
		return nil, fmt.Errorf("failed to decode recent ids of %s: %w", source.ID, err)
	}
	if err := json.Unmarshal([]byte(latestTitles), &source.LatestTitles); err != nil {
		return nil, fmt.Errorf("failed to decode latest titles of %s: %w", source.ID, err)
	}

	if lastFetchedAt.Valid {
		t, err := parseTime(lastFetchedAt.String)
		if err != nil {
			return nil, err
		}
		source.LastFetchedAt = &t
	}
	if source.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if source.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}

	return &source, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFilters(f []Filter) []Filter {
	if f == nil {
		return []Filter{}
	}
	return f
}
