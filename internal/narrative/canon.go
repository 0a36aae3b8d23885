package narrative

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/saga/internal/canon"
	"github.com/starford/saga/internal/models"
)

// CreateCanonRule adds a canon rule to a series.
func (s *Service) CreateCanonRule(ctx context.Context, seriesID string, in models.CanonRule) (*models.CanonRule, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	if _, err := s.writable(ctx, seriesID); err != nil {
		return nil, err
	}
	now := s.stamp()
	in.ID = s.newID()
	in.SeriesID = seriesID
	in.Version = 1
	in.CreatedAt, in.UpdatedAt = now, now
	in.Normalize()
	if err := validate(in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateRule(ctx, &in); err != nil {
		return nil, err
	}
	s.emit(KindCanonRule, "created", seriesID, in.ID)
	return &in, nil
}

// GetCanonRules returns the canon rules of a series in creation order.
func (s *Service) GetCanonRules(ctx context.Context, seriesID string) ([]models.CanonRule, error) {
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.ListRules(ctx, seriesID)
}

// CompileGenerationContext builds the context for seriesID at targetBook from
// one consistent snapshot of the store.
func (s *Service) CompileGenerationContext(ctx context.Context, seriesID string, targetBook int) (*models.GenerationContext, error) {
	return s.compiler.Compile(ctx, seriesID, targetBook)
}

// EvaluateCanon checks text against the rules of an already compiled context.
func (s *Service) EvaluateCanon(ctx context.Context, gc *models.GenerationContext, text string) (*models.CanonReport, error) {
	return s.evaluator.Evaluate(ctx, gc, text)
}

// EvaluateText compiles the context for a book and checks text against it.
func (s *Service) EvaluateText(ctx context.Context, seriesID string, targetBook int, text string) (*models.CanonReport, error) {
	gc, err := s.CompileGenerationContext(ctx, seriesID, targetBook)
	if err != nil {
		return nil, err
	}
	return s.EvaluateCanon(ctx, gc, text)
}

// ReviewContent evaluates text and applies the lock-level policy to the
// author's acknowledgement. Overrides that lift blocking violations are
// recorded when the content is accepted.
func (s *Service) ReviewContent(ctx context.Context, seriesID string, targetBook int, text string, ack models.Acknowledgement) (*models.Review, error) {
	report, err := s.EvaluateText(ctx, seriesID, targetBook, text)
	if err != nil {
		return nil, err
	}
	decision, accepted, err := canon.Decide(report, ack)
	if err != nil {
		return nil, err
	}
	review := &models.Review{Report: *report, Decision: decision, Overrides: []models.Override{}}
	if decision != models.DecisionAccepted || len(accepted) == 0 {
		return review, nil
	}

	unlock := s.locks.lock(seriesID)
	defer unlock()
	if _, err := s.writable(ctx, seriesID); err != nil {
		return nil, err
	}
	now := s.stamp()
	for _, o := range accepted {
		review.Overrides = append(review.Overrides, models.Override{
			ID:            s.newID(),
			SeriesID:      seriesID,
			TargetKind:    models.OverrideCanonRule,
			TargetID:      o.TargetID,
			Justification: strings.TrimSpace(o.Justification),
			BookNumber:    targetBook,
			CreatedAt:     now,
		})
	}
	if err := s.repo.RecordOverrides(ctx, review.Overrides); err != nil {
		return nil, err
	}
	for _, o := range review.Overrides {
		s.logger.Info("canon rule overridden",
			slog.String("series_id", seriesID),
			slog.String("rule_id", o.TargetID),
			slog.Int("book", targetBook))
		s.emit(KindOverride, "recorded", seriesID, o.ID)
	}
	return review, nil
}

// ListOverrides returns every recorded override of a series.
func (s *Service) ListOverrides(ctx context.Context, seriesID string) ([]models.Override, error) {
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.ListOverrides(ctx, seriesID)
}
