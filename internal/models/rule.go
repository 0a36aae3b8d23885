package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CanonRule is an explicit author-declared constraint on the series.
type CanonRule struct {
	ID               string       `json:"id"`
	SeriesID         string       `json:"series_id"`
	RuleCategory     RuleCategory `json:"rule_category"`
	RuleName         string       `json:"rule_name"`
	RuleDescription  string       `json:"rule_description"`
	RuleType         RuleType     `json:"rule_type"`
	LockLevel        LockLevel    `json:"lock_level"`
	AppliesFromBook  int          `json:"applies_from_book"`
	AppliesUntilBook *int         `json:"applies_until_book,omitempty"`
	ViolationMessage string       `json:"violation_message"`
	ValidExamples    []string     `json:"valid_examples"`
	InvalidExamples  []string     `json:"invalid_examples"`
	RelatedEntityIDs []string     `json:"related_entity_ids"`
	Version          int          `json:"version"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Normalize trims strings and fills defaults.
func (r *CanonRule) Normalize() {
	r.RuleName = strings.TrimSpace(r.RuleName)
	r.RuleDescription = strings.TrimSpace(r.RuleDescription)
	r.ViolationMessage = strings.TrimSpace(r.ViolationMessage)
	r.ValidExamples = NormalizeList(r.ValidExamples)
	r.InvalidExamples = NormalizeList(r.InvalidExamples)
	r.RelatedEntityIDs = NormalizeSet(r.RelatedEntityIDs)
}

// Validate validates the rule.
func (r CanonRule) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.SeriesID, validation.Required),
		validation.Field(&r.RuleCategory, validation.Required, validation.In(ruleCategories...)),
		validation.Field(&r.RuleName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.RuleType, validation.Required, validation.In(ruleTypes...)),
		validation.Field(&r.LockLevel, validation.Required, validation.In(lockLevels...)),
		validation.Field(&r.AppliesFromBook, requiredBook...),
		validation.Field(&r.AppliesUntilBook, notBefore(r.AppliesFromBook, "applies_from_book")),
	)
}

// Message returns the text shown to the author when the rule is violated.
func (r CanonRule) Message() string {
	if r.ViolationMessage != "" {
		return r.ViolationMessage
	}
	return "violates canon rule: " + r.RuleName
}
