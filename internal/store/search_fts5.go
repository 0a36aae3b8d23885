//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/saga/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS search_fts USING fts5(
			entity_id UNINDEXED,
			series_id UNINDEXED,
			kind UNINDEXED,
			title,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(ctx context.Context, q querier, e searchEntry) error {
	_, _ = q.ExecContext(ctx, `DELETE FROM search_fts WHERE entity_id = ?`, e.entityID)
	_, err := q.ExecContext(ctx,
		`INSERT INTO search_fts (entity_id, series_id, kind, title, body) VALUES (?, ?, ?, ?, ?)`,
		e.entityID, e.seriesID, e.kind, e.title, e.body)
	if err != nil {
		return fmt.Errorf("store: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search within a series and returns
// matching entities with snippets.
func (db *DB) Search(ctx context.Context, seriesID, query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT kind,
		       entity_id,
		       title,
		       snippet(search_fts, 4, '<b>', '</b>', '...', 32)
		FROM search_fts
		WHERE search_fts MATCH ? AND series_id = ?
		ORDER BY rank
		LIMIT ?
	`, query, seriesID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}
