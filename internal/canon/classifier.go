// Package canon checks candidate text against the canon rules of a
// generation context and decides whether the author may accept it.
package canon

import (
	"context"

	"github.com/starford/saga/internal/models"
)

// Finding is one rule a classifier judged the text to violate.
type Finding struct {
	RuleID         string `json:"rule_id"`
	MatchedExample string `json:"matched_example,omitempty"`
}

// Classifier judges text against rules. Implementations should return
// promptly once ctx is done.
type Classifier interface {
	Check(ctx context.Context, rules []models.CanonRule, text string) ([]Finding, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, rules []models.CanonRule, text string) ([]Finding, error)

// Check calls f.
func (f ClassifierFunc) Check(ctx context.Context, rules []models.CanonRule, text string) ([]Finding, error) {
	return f(ctx, rules, text)
}
