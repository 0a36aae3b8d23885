package narrative

import (
	"context"
	"strings"

	"github.com/starford/saga/internal/models"
)

// CreateWorldElement adds an active world element to a series. Names are
// unique per series, ignoring case.
func (s *Service) CreateWorldElement(ctx context.Context, seriesID string, in models.WorldElement) (*models.WorldElement, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	if _, err := s.writable(ctx, seriesID); err != nil {
		return nil, err
	}
	now := s.stamp()
	in.ID = s.newID()
	in.SeriesID = seriesID
	in.IsActive = true
	in.Version = 1
	in.CreatedAt, in.UpdatedAt = now, now
	in.Normalize()
	if err := validate(in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateWorldElement(ctx, &in); err != nil {
		return nil, err
	}
	s.emit(KindWorldElement, "created", seriesID, in.ID)
	return &in, nil
}

// GetWorldElements returns the world elements of a series in creation order.
func (s *Service) GetWorldElements(ctx context.Context, seriesID string) ([]models.WorldElement, error) {
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.ListWorldElements(ctx, seriesID)
}

// DeactivateWorldElement soft-deletes an element so it drops out of every
// compiled context. Hard-locked elements need a justified override;
// immutable ones cannot be deactivated.
func (s *Service) DeactivateWorldElement(ctx context.Context, seriesID, elementID string, override *models.OverrideRequest) (*models.WorldElement, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	if _, err := s.writable(ctx, seriesID); err != nil {
		return nil, err
	}
	w, err := s.repo.GetWorldElement(ctx, elementID)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(w.SeriesID, seriesID); err != nil {
		return nil, err
	}
	if !w.IsActive {
		return w, nil
	}
	guarded := w.CanonLockLevel == models.LockHard || w.CanonLockLevel == models.LockImmutable
	if guarded {
		if err := checkOverride(w.CanonLockLevel, override, []string{"is_active"}); err != nil {
			return nil, err
		}
	}

	w.IsActive = false
	w.UpdatedAt = s.stamp()
	if err := s.repo.UpdateWorldElement(ctx, w); err != nil {
		return nil, err
	}
	if guarded {
		o := models.Override{
			ID:            s.newID(),
			SeriesID:      seriesID,
			TargetKind:    models.OverrideWorldElement,
			TargetID:      elementID,
			Justification: strings.TrimSpace(override.Justification),
			CreatedAt:     w.UpdatedAt,
		}
		if err := s.repo.RecordOverrides(ctx, []models.Override{o}); err != nil {
			return nil, err
		}
		s.emit(KindOverride, "recorded", seriesID, o.ID)
	}
	s.emit(KindWorldElement, "deactivated", seriesID, elementID)
	return w, nil
}
