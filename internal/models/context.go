package models

import "time"

// SeriesSnapshot is every entity of one series as read in a single
// consistent transaction. Slices are in creation order.
type SeriesSnapshot struct {
	Series        Series
	Characters    []Character
	WorldElements []WorldElement
	Arcs          []NarrativeArc
	Rules         []CanonRule
}

// CharacterSummary is the prompt-sized projection of an active character.
type CharacterSummary struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Role   CharacterRole   `json:"role"`
	Status CharacterStatus `json:"status"`
}

// ArcSummary is the prompt-sized projection of an active arc.
type ArcSummary struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Type                 ArcType   `json:"type"`
	Status               ArcStatus `json:"status"`
	CompletionPercentage int       `json:"completion_percentage"`
}

// GenerationContext is the book-scoped bundle handed to a text-generation
// caller. It is derived on every compilation and never persisted.
type GenerationContext struct {
	SeriesID         string             `json:"series_id"`
	TargetBook       int                `json:"target_book"`
	SeriesTitle      string             `json:"series_title"`
	Genre            string             `json:"genre"`
	Premise          string             `json:"premise"`
	MainConflict     string             `json:"main_conflict"`
	ToneGuidance     string             `json:"tone_guidance"`
	PacingGuidance   string             `json:"pacing_guidance"`
	Audience         string             `json:"audience"`
	ActiveCharacters []CharacterSummary `json:"active_characters"`
	ActiveArcs       []ArcSummary       `json:"active_arcs"`
	CanonRules       []CanonRule        `json:"canon_rules"`
	WorldState       map[string]string  `json:"world_state"`
	// Fingerprint is the SHA-256 of the context's canonical JSON with this
	// field empty. Equal store state and book give equal fingerprints.
	Fingerprint string `json:"fingerprint"`
}

// RuleRef identifies a rule in reports.
type RuleRef struct {
	RuleID    string    `json:"rule_id"`
	RuleName  string    `json:"rule_name"`
	LockLevel LockLevel `json:"lock_level"`
}

// Violation is one flagged canon rule.
type Violation struct {
	RuleID         string    `json:"rule_id"`
	RuleName       string    `json:"rule_name"`
	LockLevel      LockLevel `json:"lock_level"`
	Severity       Severity  `json:"severity"`
	MatchedExample string    `json:"matched_example,omitempty"`
	Message        string    `json:"message"`
}

// CanonReport is the result of checking a passage against a context.
type CanonReport struct {
	SeriesID   string      `json:"series_id"`
	TargetBook int         `json:"target_book"`
	Violations []Violation `json:"violations"`
	// Complete is false when the classifier timed out or failed; the
	// violation list is then empty and Unverified lists the blocking rules
	// whose result is unknown.
	Complete   bool      `json:"complete"`
	Warnings   []string  `json:"warnings,omitempty"`
	Unverified []RuleRef `json:"unverified,omitempty"`
}

// Decision is the acceptance outcome for reviewed content.
type Decision string

const (
	DecisionAccepted          Decision = "accepted"
	DecisionNeedsConfirmation Decision = "needs_confirmation"
	DecisionBlocked           Decision = "blocked"
	DecisionRejected          Decision = "rejected"
)

// OverrideTarget is the kind of entity an override applies to.
type OverrideTarget string

const (
	OverrideCanonRule    OverrideTarget = "canon_rule"
	OverrideCharacter    OverrideTarget = "character"
	OverrideWorldElement OverrideTarget = "world_element"
)

// OverrideRequest is an author's request to bypass one block.
type OverrideRequest struct {
	TargetID      string `json:"target_id"`
	Justification string `json:"justification"`
}

// Acknowledgement is what the author supplies when accepting content.
type Acknowledgement struct {
	Confirmed bool              `json:"confirmed"`
	Overrides []OverrideRequest `json:"overrides"`
}

// Override is a persisted, justified bypass of a hard rule or locked attribute.
type Override struct {
	ID            string         `json:"id"`
	SeriesID      string         `json:"series_id"`
	TargetKind    OverrideTarget `json:"target_kind"`
	TargetID      string         `json:"target_id"`
	Justification string         `json:"justification"`
	BookNumber    int            `json:"book_number,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Review is the full outcome of ReviewContent.
type Review struct {
	Report    CanonReport `json:"report"`
	Decision  Decision    `json:"decision"`
	Overrides []Override  `json:"overrides,omitempty"`
}

// BundleFile is listing metadata for a series bundle on disk.
type BundleFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BundleImport records that a bundle file has been applied to a series.
type BundleImport struct {
	Path       string    `json:"path"`
	Checksum   string    `json:"checksum"`
	SeriesID   string    `json:"series_id"`
	ImportedAt time.Time `json:"imported_at"`
}
