// Package models defines the domain types for Saga: a series and the
// books, characters, world elements, arcs and canon rules it owns.
package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Style holds the series-wide voice settings used as generation guidance.
type Style struct {
	Tone     string `json:"tone"`
	Pacing   string `json:"pacing"`
	Audience string `json:"audience"`
}

// Series is the top-level authored work spanning multiple books.
type Series struct {
	ID              string `json:"id"`
	AuthorID        string `json:"author_id"`
	Title           string `json:"title"`
	Genre           string `json:"genre"`
	TargetBookCount int    `json:"target_book_count"`
	Style           Style  `json:"style"`
	Premise         string `json:"premise"`
	MainConflict    string `json:"main_conflict"`
	// PlannedEnding is visible to the author only and never compiled into
	// a generation context.
	PlannedEnding string    `json:"planned_ending,omitempty"`
	Archived      bool      `json:"archived"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize trims free-text fields.
func (s *Series) Normalize() {
	s.AuthorID = strings.TrimSpace(s.AuthorID)
	s.Title = strings.TrimSpace(s.Title)
	s.Genre = strings.TrimSpace(s.Genre)
	s.Style.Tone = strings.TrimSpace(s.Style.Tone)
	s.Style.Pacing = strings.TrimSpace(s.Style.Pacing)
	s.Style.Audience = strings.TrimSpace(s.Style.Audience)
	s.Premise = strings.TrimSpace(s.Premise)
	s.MainConflict = strings.TrimSpace(s.MainConflict)
	s.PlannedEnding = strings.TrimSpace(s.PlannedEnding)
}

// Validate validates the series.
func (s Series) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.AuthorID, validation.Required),
		validation.Field(&s.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&s.Genre, validation.Length(0, 100)),
		validation.Field(&s.TargetBookCount, validation.Min(0)),
	)
}

// SeriesPatch lists the author-editable series fields. Nil means unchanged.
type SeriesPatch struct {
	Title           *string `json:"title,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	TargetBookCount *int    `json:"target_book_count,omitempty"`
	Style           *Style  `json:"style,omitempty"`
	Premise         *string `json:"premise,omitempty"`
	MainConflict    *string `json:"main_conflict,omitempty"`
	PlannedEnding   *string `json:"planned_ending,omitempty"`
}

// Apply copies the set fields onto s.
func (p SeriesPatch) Apply(s *Series) {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Genre != nil {
		s.Genre = *p.Genre
	}
	if p.TargetBookCount != nil {
		s.TargetBookCount = *p.TargetBookCount
	}
	if p.Style != nil {
		s.Style = *p.Style
	}
	if p.Premise != nil {
		s.Premise = *p.Premise
	}
	if p.MainConflict != nil {
		s.MainConflict = *p.MainConflict
	}
	if p.PlannedEnding != nil {
		s.PlannedEnding = *p.PlannedEnding
	}
}

// Book is one volume of a series. BookNumber is the series' temporal axis.
type Book struct {
	ID         string    `json:"id"`
	SeriesID   string    `json:"series_id"`
	BookNumber int       `json:"book_number"`
	Title      string    `json:"title"`
	WordCount  int       `json:"word_count"`
	Version    int       `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Normalize trims free-text fields.
func (b *Book) Normalize() {
	b.Title = strings.TrimSpace(b.Title)
}

// Validate validates the book.
func (b Book) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.SeriesID, validation.Required),
		validation.Field(&b.BookNumber, requiredBook...),
		validation.Field(&b.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&b.WordCount, validation.Min(0)),
	)
}

// BookPatch lists the editable book fields. The book number is immutable.
type BookPatch struct {
	Title     *string `json:"title,omitempty"`
	WordCount *int    `json:"word_count,omitempty"`
}

// Apply copies the set fields onto b.
func (p BookPatch) Apply(b *Book) {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.WordCount != nil {
		b.WordCount = *p.WordCount
	}
}
