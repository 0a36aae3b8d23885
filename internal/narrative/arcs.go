package narrative

import (
	"context"
	"errors"
	"fmt"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// CreateNarrativeArc adds an arc to a series. Listed characters must belong
// to the series and appear no later than the arc's last book.
func (s *Service) CreateNarrativeArc(ctx context.Context, seriesID string, in models.NarrativeArc) (*models.NarrativeArc, error) {
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
	if err := s.checkArcCharacters(ctx, in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateArc(ctx, &in); err != nil {
		return nil, err
	}
	s.emit(KindArc, "created", seriesID, in.ID)
	return &in, nil
}

// GetNarrativeArcs returns the arcs of a series in creation order.
func (s *Service) GetNarrativeArcs(ctx context.Context, seriesID string) ([]models.NarrativeArc, error) {
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.ListArcs(ctx, seriesID)
}

// TransitionArc moves an arc to its next status or abandons it. Any other
// move fails with apperr.ErrInvalidTransition.
func (s *Service) TransitionArc(ctx context.Context, seriesID, arcID string, version int, to models.ArcStatus) (*models.NarrativeArc, error) {
	return s.updateArc(ctx, seriesID, arcID, version, "transitioned", func(a *models.NarrativeArc) error {
		if !a.ArcStatus.CanTransitionTo(to) {
			return fmt.Errorf("%s -> %s: %w", a.ArcStatus, to, apperr.ErrInvalidTransition)
		}
		a.ArcStatus = to
		return nil
	})
}

// SetArcCompletion sets the author-managed completion percentage (0-100).
func (s *Service) SetArcCompletion(ctx context.Context, seriesID, arcID string, version, percent int) (*models.NarrativeArc, error) {
	return s.updateArc(ctx, seriesID, arcID, version, "updated", func(a *models.NarrativeArc) error {
		a.CompletionPercentage = percent
		return nil
	})
}

func (s *Service) updateArc(ctx context.Context, seriesID, arcID string, version int, action string,
	mutate func(*models.NarrativeArc) error) (*models.NarrativeArc, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	if _, err := s.writable(ctx, seriesID); err != nil {
		return nil, err
	}
	a, err := s.repo.GetArc(ctx, arcID)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(a.SeriesID, seriesID); err != nil {
		return nil, err
	}
	if err := checkVersion(version, a.Version); err != nil {
		return nil, err
	}
	if err := mutate(a); err != nil {
		return nil, err
	}
	if err := validate(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = s.stamp()
	if err := s.repo.UpdateArc(ctx, a); err != nil {
		return nil, err
	}
	s.emit(KindArc, action, seriesID, arcID)
	return a, nil
}

func (s *Service) checkArcCharacters(ctx context.Context, a models.NarrativeArc) error {
	for i, id := range a.CharacterIDs {
		field := fmt.Sprintf("character_ids.%d", i)
		c, err := s.repo.GetCharacter(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.NewValidationError(field, "unknown character")
		}
		if err != nil {
			return err
		}
		if c.SeriesID != a.SeriesID {
			return apperr.NewValidationError(field, "unknown character")
		}
		if a.EndsInBook != nil && c.FirstAppearsBook > *a.EndsInBook {
			return apperr.NewValidationError(field,
				fmt.Sprintf("%s first appears in book %d, after the arc ends", c.Name, c.FirstAppearsBook))
		}
	}
	return nil
}
