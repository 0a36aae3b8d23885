package canon

import (
	"fmt"
	"strings"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// Decide applies the lock-level policy to a report and the author's
// acknowledgement. It returns the decision and, when accepted, the
// overrides that lifted blocking violations.
//
//   - any fatal violation rejects the content; overriding one fails with
//     apperr.ErrOverrideRejected
//   - every blocking violation needs a justified override
//   - warnings, and incomplete reports, need the author's confirmation
//   - info violations never block
func Decide(report *models.CanonReport, ack models.Acknowledgement) (models.Decision, []models.OverrideRequest, error) {
	bySeverity := make(map[string]models.Severity, len(report.Violations))
	for _, v := range report.Violations {
		bySeverity[v.RuleID] = v.Severity
	}

	requested := make(map[string]models.OverrideRequest, len(ack.Overrides))
	for i, o := range ack.Overrides {
		sev, ok := bySeverity[o.TargetID]
		switch {
		case ok && sev == models.SeverityFatal:
			return "", nil, fmt.Errorf("rule %s: %w", o.TargetID, apperr.ErrOverrideRejected)
		case !ok || !sev.Overridable():
			return "", nil, apperr.NewValidationError(
				fmt.Sprintf("overrides.%d.target_id", i), "does not match a blocking violation")
		case strings.TrimSpace(o.Justification) == "":
			return "", nil, apperr.NewValidationError(
				fmt.Sprintf("overrides.%d.justification", i), "cannot be blank")
		}
		requested[o.TargetID] = o
	}

	for _, v := range report.Violations {
		if v.Severity == models.SeverityFatal {
			return models.DecisionRejected, nil, nil
		}
	}

	var needsConfirm bool
	accepted := []models.OverrideRequest{}
	for _, v := range report.Violations {
		switch v.Severity {
		case models.SeverityBlocking:
			o, ok := requested[v.RuleID]
			if !ok {
				return models.DecisionBlocked, nil, nil
			}
			accepted = append(accepted, o)
		case models.SeverityWarning:
			needsConfirm = true
		}
	}
	if !report.Complete {
		needsConfirm = true
	}
	if needsConfirm && !ack.Confirmed {
		return models.DecisionNeedsConfirmation, nil, nil
	}
	return models.DecisionAccepted, accepted, nil
}
