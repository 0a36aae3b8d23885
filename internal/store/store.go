// Package store provides the SQLite-backed entity stores for series and
// everything a series owns.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/starford/saga/internal/apperr"
)

// Every entity table keeps the full entity as a JSON document next to the
// columns used for lookups and constraints. seq preserves creation order.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS series (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	author_id  TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 1,
	doc        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS books (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	series_id   TEXT NOT NULL REFERENCES series(id),
	book_number INTEGER NOT NULL,
	version     INTEGER NOT NULL DEFAULT 1,
	doc         TEXT NOT NULL,
	UNIQUE(series_id, book_number)
);

CREATE TABLE IF NOT EXISTS characters (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	series_id TEXT NOT NULL REFERENCES series(id),
	version   INTEGER NOT NULL DEFAULT 1,
	doc       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS world_elements (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	series_id TEXT NOT NULL REFERENCES series(id),
	name_key  TEXT NOT NULL,
	version   INTEGER NOT NULL DEFAULT 1,
	doc       TEXT NOT NULL,
	UNIQUE(series_id, name_key)
);

CREATE TABLE IF NOT EXISTS narrative_arcs (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	series_id TEXT NOT NULL REFERENCES series(id),
	version   INTEGER NOT NULL DEFAULT 1,
	doc       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS canon_rules (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	id        TEXT NOT NULL UNIQUE,
	series_id TEXT NOT NULL REFERENCES series(id),
	version   INTEGER NOT NULL DEFAULT 1,
	doc       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS overrides (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	series_id     TEXT NOT NULL REFERENCES series(id),
	target_kind   TEXT NOT NULL,
	target_id     TEXT NOT NULL,
	justification TEXT NOT NULL,
	book_number   INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS bundle_imports (
	path        TEXT PRIMARY KEY,
	checksum    TEXT NOT NULL,
	series_id   TEXT NOT NULL,
	imported_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS search_entries (
	seq       INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id TEXT NOT NULL UNIQUE,
	series_id TEXT NOT NULL,
	kind      TEXT NOT NULL,
	title     TEXT NOT NULL,
	body      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_series_author ON series(author_id);
CREATE INDEX IF NOT EXISTS idx_books_series ON books(series_id);
CREATE INDEX IF NOT EXISTS idx_characters_series ON characters(series_id);
CREATE INDEX IF NOT EXISTS idx_world_elements_series ON world_elements(series_id);
CREATE INDEX IF NOT EXISTS idx_narrative_arcs_series ON narrative_arcs(series_id);
CREATE INDEX IF NOT EXISTS idx_canon_rules_series ON canon_rules(series_id);
CREATE INDEX IF NOT EXISTS idx_overrides_series ON overrides(series_id);
CREATE INDEX IF NOT EXISTS idx_search_entries_series ON search_entries(series_id);
`

const (
	tableSeries        = "series"
	tableBooks         = "books"
	tableCharacters    = "characters"
	tableWorldElements = "world_elements"
	tableArcs          = "narrative_arcs"
	tableRules         = "canon_rules"
)

// DB wraps a sql.DB with entity-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: init fts: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func marshalDoc(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("store: encode: %w", err)
	}
	return string(b), nil
}

func unmarshalDoc(doc string, v any) error {
	if err := json.Unmarshal([]byte(doc), v); err != nil {
		return fmt.Errorf("store: decode: %w", err)
	}
	return nil
}

// getDoc loads one entity by id.
func getDoc[T any](ctx context.Context, q querier, table, id string) (*T, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM `+table+` WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", table, err)
	}
	var v T
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", table, err)
	}
	return &v, nil
}

// listDocs loads every entity of a series in creation order.
func listDocs[T any](ctx context.Context, q querier, table, seriesID string) ([]T, error) {
	rows, err := q.QueryContext(ctx, `SELECT doc FROM `+table+` WHERE series_id = ? ORDER BY seq`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", table, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", table, err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// inTx runs fn in one transaction and commits only when fn succeeds.
func (db *DB) inTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// insertDoc runs insert and indexes v for search in one transaction.
func (db *DB) insertDoc(ctx context.Context, v any, insert func(q querier) error) error {
	return db.inTx(ctx, func(q querier) error {
		if err := insert(q); err != nil {
			return err
		}
		return reindex(ctx, q, v)
	})
}

// update runs updateDoc in a transaction. *version is left unchanged when
// anything fails, including the commit.
func (db *DB) update(ctx context.Context, table, id string, version *int, v any) error {
	expected := *version
	err := db.inTx(ctx, func(q querier) error {
		return updateDoc(ctx, q, table, id, version, v)
	})
	if err != nil {
		*version = expected
	}
	return err
}

// updateDoc replaces an entity document when its stored version still
// equals *version, bumps *version and refreshes the search entry on success.
func updateDoc(ctx context.Context, q querier, table, id string, version *int, v any) error {
	expected := *version
	*version = expected + 1
	doc, err := marshalDoc(v)
	if err != nil {
		*version = expected
		return err
	}
	res, err := q.ExecContext(ctx,
		`UPDATE `+table+` SET doc = ?, version = ? WHERE id = ? AND version = ?`,
		doc, *version, id, expected)
	if err != nil {
		*version = expected
		return fmt.Errorf("store: update %s: %w", table, mapConstraint(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		*version = expected
		return fmt.Errorf("store: update %s: %w", table, err)
	}
	if n == 0 {
		*version = expected
		var exists int
		err := q.QueryRowContext(ctx, `SELECT count(*) FROM `+table+` WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("store: update %s: %w", table, err)
		}
		if exists == 0 {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("store: %s %s changed since version %d: %w", table, id, expected, apperr.ErrConflict)
	}
	if err := reindex(ctx, q, v); err != nil {
		*version = expected
		return err
	}
	return nil
}

// mapConstraint translates SQLite constraint failures into apperr values.
func mapConstraint(err error) error {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, se.Error())
	case sqlite3.ErrConstraintForeignKey:
		return apperr.ErrSeriesNotFound
	}
	return err
}
