package models

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NormalizeSet trims entries, drops empties and case-insensitive
// duplicates, and keeps first-seen order. The result is never nil.
func NormalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NormalizeList trims entries and drops empties, keeping duplicates and
// order. Used for ordered sequences such as plot points and examples.
func NormalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }

// IntPtr returns a pointer to v. Handy for nullable book bounds.
func IntPtr(v int) *int { return intPtr(v) }

// requiredBook rejects book numbers below 1, including zero.
var requiredBook = []validation.Rule{
	validation.Required.Error("must be at least 1"),
	validation.Min(1).Error("must be at least 1"),
}

// notBefore validates an optional upper book bound against its lower bound.
func notBefore(lower int, lowerName string) validation.Rule {
	return validation.By(func(value any) error {
		p, _ := value.(*int)
		if p == nil {
			return nil
		}
		if *p < lower {
			return fmt.Errorf("must be greater than or equal to %s (%d)", lowerName, lower)
		}
		return nil
	})
}
