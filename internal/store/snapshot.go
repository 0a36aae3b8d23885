package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// Snapshot reads a series and all the entities it owns inside one read
// transaction, so a concurrent write is either fully visible or not at all.
func (db *DB) Snapshot(ctx context.Context, seriesID string) (*models.SeriesSnapshot, error) {
	tx, err := db.conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("store: begin snapshot: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	series, err := getDoc[models.Series](ctx, tx, tableSeries, seriesID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrSeriesNotFound
		}
		return nil, err
	}

	snap := &models.SeriesSnapshot{Series: *series}
	if snap.Characters, err = listDocs[models.Character](ctx, tx, tableCharacters, seriesID); err != nil {
		return nil, err
	}
	if snap.WorldElements, err = listDocs[models.WorldElement](ctx, tx, tableWorldElements, seriesID); err != nil {
		return nil, err
	}
	if snap.Arcs, err = listDocs[models.NarrativeArc](ctx, tx, tableArcs, seriesID); err != nil {
		return nil, err
	}
	if snap.Rules, err = listDocs[models.CanonRule](ctx, tx, tableRules, seriesID); err != nil {
		return nil, err
	}
	return snap, nil
}
