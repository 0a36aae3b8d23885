package canon

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/saga/internal/models"
)

// DefaultMatchThreshold is the share of an example's significant terms that
// must appear in the text for the example to match.
const DefaultMatchThreshold = 0.75

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {},
	"by": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "he": {}, "her": {},
	"his": {}, "in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "no": {}, "not": {},
	"of": {}, "on": {}, "or": {}, "she": {}, "that": {}, "the": {}, "their": {}, "them": {},
	"they": {}, "this": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

var resurrectionPhrases = []string{
	"returned to life", "came back to life", "brought back to life",
	"back from the dead", "rose from the dead", "risen from the grave",
	"resurrected", "revived",
}

// paraphrases maps stemmed rule-name terms to the usual ways prose
// expresses them.
var paraphrases = map[string][]string{
	"resurrection":  resurrectionPhrases,
	"resurrect":     resurrectionPhrases,
	"revival":       resurrectionPhrases,
	"immortality":   {"cannot die", "never die", "lived forever", "does not age"},
	"teleportation": {"vanished and reappeared", "appeared instantly", "stepped through a portal"},
}

// Heuristic is a deterministic, dependency-free classifier. It flags a
// prohibitive rule when one of its invalid examples substantially overlaps
// the text; rules without examples are matched by name, description and
// paraphrases. Prescriptive rules are never flagged.
type Heuristic struct {
	threshold float64
}

// NewHeuristic returns a Heuristic using threshold, or
// DefaultMatchThreshold when threshold is not in (0, 1].
func NewHeuristic(threshold float64) *Heuristic {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &Heuristic{threshold: threshold}
}

// Check implements Classifier.
func (h *Heuristic) Check(ctx context.Context, rules []models.CanonRule, text string) ([]Finding, error) {
	present := termSet(text)
	var out []Finding
	for _, r := range rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !r.RuleType.Prohibitive() {
			continue
		}
		if len(r.InvalidExamples) == 0 {
			if h.matchesRule(r, present) {
				out = append(out, Finding{RuleID: r.ID})
			}
			continue
		}
		for _, ex := range r.InvalidExamples {
			if h.matches(terms(ex), present) {
				out = append(out, Finding{RuleID: r.ID, MatchedExample: ex})
				break
			}
		}
	}
	return out, nil
}

// matchesRule checks a rule that declares no invalid examples against its
// name, its description and the known paraphrases of its name terms.
func (h *Heuristic) matchesRule(r models.CanonRule, present map[string]struct{}) bool {
	name := terms(r.RuleName)
	if h.matches(name, present) {
		return true
	}
	if r.RuleDescription != "" && h.matches(terms(r.RuleDescription), present) {
		return true
	}
	for _, t := range name {
		for _, phrase := range paraphrases[t] {
			if h.matches(terms(phrase), present) {
				return true
			}
		}
	}
	return false
}

func (h *Heuristic) matches(want []string, present map[string]struct{}) bool {
	if len(want) == 0 {
		return false
	}
	hit := 0
	for _, t := range want {
		if _, ok := present[t]; ok {
			hit++
		}
	}
	return float64(hit)/float64(len(want)) >= h.threshold
}

func termSet(s string) map[string]struct{} {
	ts := terms(s)
	set := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		set[t] = struct{}{}
	}
	return set
}

// terms returns the distinct significant terms of s in first-seen order.
func terms(s string) []string {
	words := strings.FieldsFunc(fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(words))
	var out []string
	for _, w := range words {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		w = stem(w)
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// fold lowercases s and strips diacritics so "Éowyn" and "eowyn" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// stem strips a few English inflections, never leaving fewer than three letters.
func stem(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "ing") && len(w)-3 >= 3:
		return w[:len(w)-3]
	case strings.HasSuffix(w, "ed") && len(w)-2 >= 3:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w)-1 >= 3:
		return w[:len(w)-1]
	}
	return w
}
