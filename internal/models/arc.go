package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ArcStatus is a position in the arc lifecycle.
type ArcStatus string

const (
	ArcSetup     ArcStatus = "setup"
	ArcRising    ArcStatus = "rising"
	ArcClimax    ArcStatus = "climax"
	ArcFalling   ArcStatus = "falling"
	ArcResolved  ArcStatus = "resolved"
	ArcAbandoned ArcStatus = "abandoned"
)

var arcStatuses = []any{ArcSetup, ArcRising, ArcClimax, ArcFalling, ArcResolved, ArcAbandoned}

// arcNext maps each non-terminal status to its single forward successor.
var arcNext = map[ArcStatus]ArcStatus{
	ArcSetup:   ArcRising,
	ArcRising:  ArcClimax,
	ArcClimax:  ArcFalling,
	ArcFalling: ArcResolved,
}

// Terminal reports whether no further transition is allowed.
func (s ArcStatus) Terminal() bool {
	return s == ArcResolved || s == ArcAbandoned
}

// CanTransitionTo reports whether an author may move an arc from s to next.
// Arcs advance one step at a time or are abandoned; they never return to
// setup and never leave a terminal state.
func (s ArcStatus) CanTransitionTo(next ArcStatus) bool {
	if s.Terminal() {
		return false
	}
	if next == ArcAbandoned {
		return true
	}
	return arcNext[s] == next
}

// NarrativeArc is a multi-book storyline.
type NarrativeArc struct {
	ID                   string    `json:"id"`
	SeriesID             string    `json:"series_id"`
	ArcName              string    `json:"arc_name"`
	ArcType              ArcType   `json:"arc_type"`
	ArcStatus            ArcStatus `json:"arc_status"`
	StartsInBook         int       `json:"starts_in_book"`
	EndsInBook           *int      `json:"ends_in_book,omitempty"`
	Themes               []string  `json:"themes"`
	SetupPoints          []string  `json:"setup_points"`
	RisingActionPoints   []string  `json:"rising_action_points"`
	ClimaxPoint          string    `json:"climax_point"`
	CompletionPercentage int       `json:"completion_percentage"`
	CharacterIDs         []string  `json:"character_ids"`
	Version              int       `json:"version"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Normalize trims strings, deduplicates sets and fills defaults.
func (a *NarrativeArc) Normalize() {
	a.ArcName = strings.TrimSpace(a.ArcName)
	a.Themes = NormalizeSet(a.Themes)
	a.SetupPoints = NormalizeList(a.SetupPoints)
	a.RisingActionPoints = NormalizeList(a.RisingActionPoints)
	a.ClimaxPoint = strings.TrimSpace(a.ClimaxPoint)
	a.CharacterIDs = NormalizeSet(a.CharacterIDs)
	if a.ArcStatus == "" {
		a.ArcStatus = ArcSetup
	}
}

// Validate validates the arc.
func (a NarrativeArc) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SeriesID, validation.Required),
		validation.Field(&a.ArcName, validation.Required, validation.Length(1, 200)),
		validation.Field(&a.ArcType, validation.Required, validation.In(arcTypes...)),
		validation.Field(&a.ArcStatus, validation.Required, validation.In(arcStatuses...)),
		validation.Field(&a.StartsInBook, requiredBook...),
		validation.Field(&a.EndsInBook, notBefore(a.StartsInBook, "starts_in_book")),
		validation.Field(&a.CompletionPercentage, validation.Min(0), validation.Max(100)),
	)
}
