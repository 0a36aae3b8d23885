package store

import (
	"context"
	"fmt"

	"github.com/starford/saga/internal/models"
)

// RecordOverrides persists justified overrides in one transaction.
func (db *DB) RecordOverrides(ctx context.Context, overrides []models.Override) error {
	if len(overrides) == 0 {
		return nil
	}
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO overrides (id, series_id, target_kind, target_id, justification, book_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: prepare override insert: %w", err)
	}
	defer stmt.Close()
	for _, o := range overrides {
		if _, err := stmt.ExecContext(ctx, o.ID, o.SeriesID, string(o.TargetKind), o.TargetID,
			o.Justification, o.BookNumber, o.CreatedAt); err != nil {
			return fmt.Errorf("store: insert override: %w", mapConstraint(err))
		}
	}
	return tx.Commit()
}

// ListOverrides returns the overrides recorded for a series, oldest first.
func (db *DB) ListOverrides(ctx context.Context, seriesID string) ([]models.Override, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, series_id, target_kind, target_id, justification, book_number, created_at
		FROM overrides
		WHERE series_id = ?
		ORDER BY seq
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("store: list overrides: %w", err)
	}
	defer rows.Close()

	out := []models.Override{}
	for rows.Next() {
		var o models.Override
		var kind string
		if err := rows.Scan(&o.ID, &o.SeriesID, &kind, &o.TargetID, &o.Justification, &o.BookNumber, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.TargetKind = models.OverrideTarget(kind)
		out = append(out, o)
	}
	return out, rows.Err()
}

// BundleImports returns every recorded bundle import keyed by path.
func (db *DB) BundleImports(ctx context.Context) (map[string]models.BundleImport, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path, checksum, series_id, imported_at FROM bundle_imports`)
	if err != nil {
		return nil, fmt.Errorf("store: bundle imports: %w", err)
	}
	defer rows.Close()

	out := make(map[string]models.BundleImport)
	for rows.Next() {
		var bi models.BundleImport
		if err := rows.Scan(&bi.Path, &bi.Checksum, &bi.SeriesID, &bi.ImportedAt); err != nil {
			return nil, err
		}
		out[bi.Path] = bi
	}
	return out, rows.Err()
}

// RecordBundleImport inserts or replaces the import record for a path.
func (db *DB) RecordBundleImport(ctx context.Context, bi models.BundleImport) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO bundle_imports (path, checksum, series_id, imported_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum    = excluded.checksum,
			series_id   = excluded.series_id,
			imported_at = excluded.imported_at
	`, bi.Path, bi.Checksum, bi.SeriesID, bi.ImportedAt)
	if err != nil {
		return fmt.Errorf("store: record bundle import: %w", err)
	}
	return nil
}
