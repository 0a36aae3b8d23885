package store

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

func TestSearch_IndexesCreatesAndUpdates(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedSeries(t, db, "s1")
	seedSeries(t, db, "s2")

	c := &models.Character{ID: "c1", SeriesID: "s1", Name: "Aria", PhysicalDescription: "silver hair", Version: 1}
	if err := db.CreateCharacter(ctx, c); err != nil {
		t.Fatal(err)
	}
	other := &models.Character{ID: "c2", SeriesID: "s2", Name: "Aria", PhysicalDescription: "silver hair", Version: 1}
	if err := db.CreateCharacter(ctx, other); err != nil {
		t.Fatal(err)
	}

	hits, err := db.Search(ctx, "s1", "silver", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].EntityID != "c1" || hits[0].Kind != "character" || hits[0].Title != "Aria" {
		t.Fatalf("hits = %+v, want c1 only", hits)
	}

	c.PhysicalDescription = "copper hair"
	if err := db.UpdateCharacter(ctx, c); err != nil {
		t.Fatal(err)
	}
	if hits, _ := db.Search(ctx, "s1", "silver", 10); len(hits) != 0 {
		t.Errorf("stale text still matches: %+v", hits)
	}
	if hits, _ := db.Search(ctx, "s1", "copper", 10); len(hits) != 1 {
		t.Errorf("updated text not found: %+v", hits)
	}
}

func TestSearch_SeriesTitleAndLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedSeries(t, db, "s1")
	for i, id := range []string{"b1", "b2", "b3"} {
		b := &models.Book{ID: id, SeriesID: "s1", BookNumber: i + 1, Title: "Crown Volume", Version: 1}
		if err := db.CreateBook(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := db.Search(ctx, "s1", "crown", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("got %d hits, want limit of 2", len(hits))
	}

	hits, err = db.Search(ctx, "s1", "crown", 0)
	if err != nil {
		t.Fatal(err)
	}
	// The series title and all three books.
	if len(hits) != 4 {
		t.Errorf("got %d hits, want 4", len(hits))
	}
}

func TestSearch_IndexFailureRollsBackWrite(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedSeries(t, db, "s1")

	a := &models.NarrativeArc{ID: "a1", SeriesID: "s1", ArcName: "Betrayal", StartsInBook: 2, Version: 1}
	if err := db.CreateArc(ctx, a); err != nil {
		t.Fatal(err)
	}

	if _, err := db.conn.Exec(`DROP TABLE search_entries`); err != nil {
		t.Fatal(err)
	}

	c := &models.Character{ID: "c1", SeriesID: "s1", Name: "Aria", Version: 1}
	if err := db.CreateCharacter(ctx, c); err == nil {
		t.Fatal("CreateCharacter should fail when the search index cannot be written")
	}
	if _, err := db.GetCharacter(ctx, "c1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("character committed without its index entry: err = %v", err)
	}

	a.CompletionPercentage = 50
	if err := db.UpdateArc(ctx, a); err == nil {
		t.Fatal("UpdateArc should fail when the search index cannot be written")
	}
	if a.Version != 1 {
		t.Errorf("version = %d after failed update, want 1", a.Version)
	}
	got, err := db.GetArc(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 1 || got.CompletionPercentage != 0 {
		t.Errorf("stored arc = %+v, want unchanged", got)
	}
}
