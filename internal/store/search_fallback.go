//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/starford/saga/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE on search_entries.
	return nil
}

func ftsUpsert(_ context.Context, _ querier, _ searchEntry) error {
	// search_entries already holds the text; nothing extra to do.
	return nil
}

// Search performs a LIKE-based search within a series (fallback when FTS5
// is not compiled in).
func (db *DB) Search(ctx context.Context, seriesID, query string, limit int) ([]models.SearchHit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT kind, entity_id, title, substr(body, 1, 200)
		FROM search_entries
		WHERE series_id = ? AND (title LIKE ? OR body LIKE ?)
		ORDER BY seq
		LIMIT ?
	`, seriesID, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()
	return scanHits(rows)
}
