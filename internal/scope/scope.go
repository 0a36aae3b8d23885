// Package scope decides which entities of a series are visible at a given
// book number.
package scope

import (
	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// CheckBook returns apperr.ErrInvalidScope for book numbers below 1.
func CheckBook(book int) error {
	if book < 1 {
		return apperr.ErrInvalidScope
	}
	return nil
}

// CharacterActive reports whether c is present at book. A retired character
// stays active through its retired_in_book; without one it is hidden
// everywhere.
func CharacterActive(c models.Character, book int) bool {
	if c.FirstAppearsBook > book {
		return false
	}
	if c.Status == models.StatusRetired {
		return c.RetiredInBook != nil && book <= *c.RetiredInBook
	}
	return true
}

// WorldElementActive reports whether w exists and is in effect at book.
func WorldElementActive(w models.WorldElement, book int) bool {
	return w.IsActive && w.IntroducedInBook <= book
}

// ArcActive reports whether a spans book.
func ArcActive(a models.NarrativeArc, book int) bool {
	return within(a.StartsInBook, a.EndsInBook, book)
}

// RuleApplies reports whether r is in force at book.
func RuleApplies(r models.CanonRule, book int) bool {
	return within(r.AppliesFromBook, r.AppliesUntilBook, book)
}

func within(from int, until *int, book int) bool {
	if from > book {
		return false
	}
	return until == nil || *until >= book
}

// Active is the subset of a snapshot visible at one book, in creation order.
type Active struct {
	Book          int
	Characters    []models.Character
	WorldElements []models.WorldElement
	Arcs          []models.NarrativeArc
	Rules         []models.CanonRule
}

// Resolve filters snap down to what is visible at book.
func Resolve(snap *models.SeriesSnapshot, book int) (*Active, error) {
	if err := CheckBook(book); err != nil {
		return nil, err
	}
	return &Active{
		Book:          book,
		Characters:    filter(snap.Characters, book, CharacterActive),
		WorldElements: filter(snap.WorldElements, book, WorldElementActive),
		Arcs:          filter(snap.Arcs, book, ArcActive),
		Rules:         filter(snap.Rules, book, RuleApplies),
	}, nil
}

func filter[T any](in []T, book int, keep func(T, int) bool) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		if keep(v, book) {
			out = append(out, v)
		}
	}
	return out
}
