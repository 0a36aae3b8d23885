package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/saga/internal/models"
)

// DefaultSearchLimit caps search results when no limit is given.
const DefaultSearchLimit = 20

// searchEntry is the searchable text of one entity.
type searchEntry struct {
	entityID string
	seriesID string
	kind     string
	title    string
	body     string
}

func joinText(parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

func entryFor(v any) (searchEntry, bool) {
	switch e := v.(type) {
	case *models.Series:
		return searchEntry{e.ID, e.ID, "series", e.Title,
			joinText(e.Genre, e.Premise, e.MainConflict, e.PlannedEnding)}, true
	case *models.Book:
		return searchEntry{e.ID, e.SeriesID, "book", e.Title, ""}, true
	case *models.Character:
		p := e.CorePersonality
		return searchEntry{e.ID, e.SeriesID, "character", e.Name,
			joinText(strings.Join(e.Aliases, " "), e.PhysicalDescription, e.DialogueStyle,
				strings.Join(p.Traits, " "), strings.Join(p.Values, " "),
				strings.Join(p.Fears, " "), strings.Join(p.Desires, " "))}, true
	case *models.WorldElement:
		return searchEntry{e.ID, e.SeriesID, "world_element", e.Name,
			joinText(strings.Join(e.Aliases, " "), e.Description.Short, e.Description.Full,
				e.Description.Visual, strings.Join(e.Tags, " "))}, true
	case *models.NarrativeArc:
		return searchEntry{e.ID, e.SeriesID, "arc", e.ArcName,
			joinText(strings.Join(e.Themes, " "), strings.Join(e.SetupPoints, "\n"),
				strings.Join(e.RisingActionPoints, "\n"), e.ClimaxPoint)}, true
	case *models.CanonRule:
		return searchEntry{e.ID, e.SeriesID, "canon_rule", e.RuleName,
			joinText(e.RuleDescription, e.ViolationMessage)}, true
	}
	return searchEntry{}, false
}

// reindex refreshes the search entry of an entity after it was written.
func reindex(ctx context.Context, q querier, v any) error {
	e, ok := entryFor(v)
	if !ok {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO search_entries (entity_id, series_id, kind, title, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(entity_id) DO UPDATE SET
			title = excluded.title,
			body  = excluded.body
	`, e.entityID, e.seriesID, e.kind, e.title, e.body)
	if err != nil {
		return fmt.Errorf("store: index %s: %w", e.kind, err)
	}
	return ftsUpsert(ctx, q, e)
}

func scanHits(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]models.SearchHit, error) {
	out := []models.SearchHit{}
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.Kind, &h.EntityID, &h.Title, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
