package store

import (
	"context"
	"fmt"

	"github.com/starford/saga/internal/models"
)

// CreateSeries inserts a new series.
func (db *DB) CreateSeries(ctx context.Context, s *models.Series) error {
	doc, err := marshalDoc(s)
	if err != nil {
		return err
	}
	return db.insertDoc(ctx, s, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO series (id, author_id, version, doc) VALUES (?, ?, ?, ?)`,
			s.ID, s.AuthorID, s.Version, doc)
		if err != nil {
			return fmt.Errorf("store: insert series: %w", mapConstraint(err))
		}
		return nil
	})
}

// GetSeries returns one series or apperr.ErrNotFound.
func (db *DB) GetSeries(ctx context.Context, id string) (*models.Series, error) {
	return getDoc[models.Series](ctx, db.conn, tableSeries, id)
}

// ListSeries returns every series of an author in creation order, or all
// series when authorID is empty.
func (db *DB) ListSeries(ctx context.Context, authorID string) ([]models.Series, error) {
	query := `SELECT doc FROM series ORDER BY seq`
	args := []any{}
	if authorID != "" {
		query = `SELECT doc FROM series WHERE author_id = ? ORDER BY seq`
		args = append(args, authorID)
	}
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list series: %w", err)
	}
	defer rows.Close()

	out := []models.Series{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var s models.Series
		if err := unmarshalDoc(doc, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateSeries writes s if its version is current.
func (db *DB) UpdateSeries(ctx context.Context, s *models.Series) error {
	return db.update(ctx, tableSeries, s.ID, &s.Version, s)
}

// CreateBook inserts a book. A duplicate book number fails with
// apperr.ErrAlreadyExists.
func (db *DB) CreateBook(ctx context.Context, b *models.Book) error {
	doc, err := marshalDoc(b)
	if err != nil {
		return err
	}
	return db.insertDoc(ctx, b, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO books (id, series_id, book_number, version, doc) VALUES (?, ?, ?, ?, ?)`,
			b.ID, b.SeriesID, b.BookNumber, b.Version, doc)
		if err != nil {
			return fmt.Errorf("store: insert book: %w", mapConstraint(err))
		}
		return nil
	})
}

// GetBook returns one book or apperr.ErrNotFound.
func (db *DB) GetBook(ctx context.Context, id string) (*models.Book, error) {
	return getDoc[models.Book](ctx, db.conn, tableBooks, id)
}

// ListBooks returns the books of a series in creation order.
func (db *DB) ListBooks(ctx context.Context, seriesID string) ([]models.Book, error) {
	return listDocs[models.Book](ctx, db.conn, tableBooks, seriesID)
}

// UpdateBook writes b if its version is current.
func (db *DB) UpdateBook(ctx context.Context, b *models.Book) error {
	return db.update(ctx, tableBooks, b.ID, &b.Version, b)
}

// CreateCharacter inserts a character.
func (db *DB) CreateCharacter(ctx context.Context, c *models.Character) error {
	return db.insertOwned(ctx, tableCharacters, c.ID, c.SeriesID, c.Version, c)
}

// GetCharacter returns one character or apperr.ErrNotFound.
func (db *DB) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	return getDoc[models.Character](ctx, db.conn, tableCharacters, id)
}

// ListCharacters returns the characters of a series in creation order.
func (db *DB) ListCharacters(ctx context.Context, seriesID string) ([]models.Character, error) {
	return listDocs[models.Character](ctx, db.conn, tableCharacters, seriesID)
}

// UpdateCharacter writes c if its version is current.
func (db *DB) UpdateCharacter(ctx context.Context, c *models.Character) error {
	return db.update(ctx, tableCharacters, c.ID, &c.Version, c)
}

// CreateWorldElement inserts a world element. Names are unique per series,
// ignoring case.
func (db *DB) CreateWorldElement(ctx context.Context, w *models.WorldElement) error {
	doc, err := marshalDoc(w)
	if err != nil {
		return err
	}
	return db.insertDoc(ctx, w, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO world_elements (id, series_id, name_key, version, doc) VALUES (?, ?, ?, ?, ?)`,
			w.ID, w.SeriesID, w.NameKey(), w.Version, doc)
		if err != nil {
			return fmt.Errorf("store: insert world element: %w", mapConstraint(err))
		}
		return nil
	})
}

// GetWorldElement returns one world element or apperr.ErrNotFound.
func (db *DB) GetWorldElement(ctx context.Context, id string) (*models.WorldElement, error) {
	return getDoc[models.WorldElement](ctx, db.conn, tableWorldElements, id)
}

// ListWorldElements returns the world elements of a series in creation order.
func (db *DB) ListWorldElements(ctx context.Context, seriesID string) ([]models.WorldElement, error) {
	return listDocs[models.WorldElement](ctx, db.conn, tableWorldElements, seriesID)
}

// UpdateWorldElement writes w if its version is current. The name is not
// editable, so name_key is left as created.
func (db *DB) UpdateWorldElement(ctx context.Context, w *models.WorldElement) error {
	return db.update(ctx, tableWorldElements, w.ID, &w.Version, w)
}

// CreateArc inserts a narrative arc.
func (db *DB) CreateArc(ctx context.Context, a *models.NarrativeArc) error {
	return db.insertOwned(ctx, tableArcs, a.ID, a.SeriesID, a.Version, a)
}

// GetArc returns one arc or apperr.ErrNotFound.
func (db *DB) GetArc(ctx context.Context, id string) (*models.NarrativeArc, error) {
	return getDoc[models.NarrativeArc](ctx, db.conn, tableArcs, id)
}

// ListArcs returns the arcs of a series in creation order.
func (db *DB) ListArcs(ctx context.Context, seriesID string) ([]models.NarrativeArc, error) {
	return listDocs[models.NarrativeArc](ctx, db.conn, tableArcs, seriesID)
}

// UpdateArc writes a if its version is current.
func (db *DB) UpdateArc(ctx context.Context, a *models.NarrativeArc) error {
	return db.update(ctx, tableArcs, a.ID, &a.Version, a)
}

// CreateRule inserts a canon rule.
func (db *DB) CreateRule(ctx context.Context, r *models.CanonRule) error {
	return db.insertOwned(ctx, tableRules, r.ID, r.SeriesID, r.Version, r)
}

// GetRule returns one canon rule or apperr.ErrNotFound.
func (db *DB) GetRule(ctx context.Context, id string) (*models.CanonRule, error) {
	return getDoc[models.CanonRule](ctx, db.conn, tableRules, id)
}

// ListRules returns the canon rules of a series in creation order.
func (db *DB) ListRules(ctx context.Context, seriesID string) ([]models.CanonRule, error) {
	return listDocs[models.CanonRule](ctx, db.conn, tableRules, seriesID)
}

func (db *DB) insertOwned(ctx context.Context, table, id, seriesID string, version int, v any) error {
	doc, err := marshalDoc(v)
	if err != nil {
		return err
	}
	return db.insertDoc(ctx, v, func(q querier) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO `+table+` (id, series_id, version, doc) VALUES (?, ?, ?, ?)`,
			id, seriesID, version, doc)
		if err != nil {
			return fmt.Errorf("store: insert %s: %w", table, mapConstraint(err))
		}
		return nil
	})
}
