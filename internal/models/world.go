package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Descriptions holds the three description tiers of a world element.
type Descriptions struct {
	Short  string `json:"short"`
	Full   string `json:"full"`
	Visual string `json:"visual"`
}

// ElementRules are the in-world laws attached to an element.
type ElementRules struct {
	Rules       []string `json:"rules"`
	Constraints []string `json:"constraints"`
	Exceptions  []string `json:"exceptions"`
}

// WorldElement is a place, institution, system or other world fact.
type WorldElement struct {
	ID               string       `json:"id"`
	SeriesID         string       `json:"series_id"`
	ElementType      ElementType  `json:"element_type"`
	Name             string       `json:"name"`
	Aliases          []string     `json:"aliases"`
	Description      Descriptions `json:"description"`
	Category         string       `json:"category"`
	Tags             []string     `json:"tags"`
	IntroducedInBook int          `json:"introduced_in_book"`
	Rules            ElementRules `json:"rules"`
	CanonLockLevel   LockLevel    `json:"canon_lock_level"`
	IsActive         bool         `json:"is_active"`
	Version          int          `json:"version"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Normalize trims strings, deduplicates sets and fills defaults.
func (w *WorldElement) Normalize() {
	w.Name = strings.TrimSpace(w.Name)
	w.Aliases = NormalizeSet(w.Aliases)
	w.Description.Short = strings.TrimSpace(w.Description.Short)
	w.Description.Full = strings.TrimSpace(w.Description.Full)
	w.Description.Visual = strings.TrimSpace(w.Description.Visual)
	w.Category = strings.TrimSpace(w.Category)
	w.Tags = NormalizeSet(w.Tags)
	w.Rules.Rules = NormalizeList(w.Rules.Rules)
	w.Rules.Constraints = NormalizeList(w.Rules.Constraints)
	w.Rules.Exceptions = NormalizeList(w.Rules.Exceptions)
	if w.CanonLockLevel == "" {
		w.CanonLockLevel = LockSoft
	}
}

// Validate validates the world element.
func (w WorldElement) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.SeriesID, validation.Required),
		validation.Field(&w.ElementType, validation.Required, validation.In(elementTypes...)),
		validation.Field(&w.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&w.IntroducedInBook, requiredBook...),
		validation.Field(&w.CanonLockLevel, validation.Required, validation.In(lockLevels...)),
	)
}

// NameKey is the case-insensitive uniqueness key of the element name.
func (w WorldElement) NameKey() string {
	return strings.ToLower(w.Name)
}

// Digest is the one-line summary used in a compiled world state.
func (w WorldElement) Digest() string {
	desc := w.Description.Short
	if desc == "" {
		desc = firstSentence(w.Description.Full)
	}
	if desc == "" {
		return string(w.ElementType)
	}
	return string(w.ElementType) + ": " + desc
}

func firstSentence(s string) string {
	if i := strings.IndexAny(s, ".!?\n"); i >= 0 {
		return strings.TrimSpace(s[:i+1])
	}
	return s
}
