package canon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// DefaultTimeout bounds a single classifier call.
const DefaultTimeout = 10 * time.Second

// UnverifiedWarning is attached to reports whose classifier did not finish.
const UnverifiedWarning = "could not fully verify canon consistency"

// Evaluator runs a Classifier under a deadline and shapes its findings
// into a CanonReport.
type Evaluator struct {
	classifier Classifier
	timeout    time.Duration
	logger     *slog.Logger
}

// NewEvaluator creates an Evaluator. A non-positive timeout selects
// DefaultTimeout; a nil logger selects slog.Default().
func NewEvaluator(c Classifier, timeout time.Duration, logger *slog.Logger) *Evaluator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{classifier: c, timeout: timeout, logger: logger}
}

type checkResult struct {
	findings []Finding
	err      error
}

// Evaluate checks text against the rules of gc. A classifier that times
// out or fails yields an incomplete report rather than an error; only
// cancellation of ctx by the caller is returned as an error.
func (e *Evaluator) Evaluate(ctx context.Context, gc *models.GenerationContext, text string) (*models.CanonReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report := &models.CanonReport{
		SeriesID:   gc.SeriesID,
		TargetBook: gc.TargetBook,
		Violations: []models.Violation{},
		Complete:   true,
	}
	if len(gc.CanonRules) == 0 {
		return report, nil
	}

	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan checkResult, 1)
	go func() {
		findings, err := e.classifier.Check(cctx, gc.CanonRules, text)
		done <- checkResult{findings: findings, err: err}
	}()

	var res checkResult
	select {
	case res = <-done:
	case <-cctx.Done():
		res.err = cctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.err != nil {
		if errors.Is(res.err, context.DeadlineExceeded) {
			res.err = fmt.Errorf("%w after %s", apperr.ErrEvaluationTimeout, e.timeout)
		}
		e.logger.Warn("canon evaluation incomplete",
			slog.String("series_id", gc.SeriesID),
			slog.Int("target_book", gc.TargetBook),
			slog.String("error", res.err.Error()),
		)
		degrade(report, gc.CanonRules)
		return report, nil
	}

	report.Violations = violations(gc.CanonRules, res.findings)
	return report, nil
}

// violations maps findings back onto rules, keeping the rules' order and
// reporting each rule at most once.
func violations(rules []models.CanonRule, findings []Finding) []models.Violation {
	byRule := make(map[string]Finding, len(findings))
	for _, f := range findings {
		if _, dup := byRule[f.RuleID]; !dup {
			byRule[f.RuleID] = f
		}
	}
	out := []models.Violation{}
	for _, r := range rules {
		f, ok := byRule[r.ID]
		if !ok {
			continue
		}
		out = append(out, models.Violation{
			RuleID:         r.ID,
			RuleName:       r.RuleName,
			LockLevel:      r.LockLevel,
			Severity:       r.LockLevel.Severity(),
			MatchedExample: f.MatchedExample,
			Message:        r.Message(),
		})
	}
	return out
}

func degrade(report *models.CanonReport, rules []models.CanonRule) {
	report.Complete = false
	report.Violations = []models.Violation{}
	report.Warnings = append(report.Warnings, UnverifiedWarning)
	for _, r := range rules {
		if r.LockLevel.Severity().Blocks() {
			report.Unverified = append(report.Unverified, models.RuleRef{
				RuleID:    r.ID,
				RuleName:  r.RuleName,
				LockLevel: r.LockLevel,
			})
		}
	}
}
