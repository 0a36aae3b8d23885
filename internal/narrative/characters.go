package narrative

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// CreateCharacter adds a character to a series.
func (s *Service) CreateCharacter(ctx context.Context, seriesID string, in models.Character) (*models.Character, error) {
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
	if err := s.repo.CreateCharacter(ctx, &in); err != nil {
		return nil, err
	}
	s.emit(KindCharacter, "created", seriesID, in.ID)
	return &in, nil
}

// GetSeriesCharacters returns the characters of a series in creation order.
func (s *Service) GetSeriesCharacters(ctx context.Context, seriesID string) ([]models.Character, error) {
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.ListCharacters(ctx, seriesID)
}

// UpdateCharacter applies patch to a character. Touching a locked attribute,
// or the lock settings of a character that has locked attributes, requires
// an override with a justification; the override is recorded. Characters at
// the immutable lock level reject every such override.
func (s *Service) UpdateCharacter(ctx context.Context, seriesID, characterID string, version int,
	patch models.CharacterPatch, override *models.OverrideRequest) (*models.Character, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	if _, err := s.writable(ctx, seriesID); err != nil {
		return nil, err
	}
	c, err := s.repo.GetCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(c.SeriesID, seriesID); err != nil {
		return nil, err
	}
	if err := checkVersion(version, c.Version); err != nil {
		return nil, err
	}

	locked := lockedTouched(*c, patch)
	if len(locked) > 0 {
		if err := checkOverride(c.CanonLockLevel, override, locked); err != nil {
			return nil, err
		}
	}

	prevFirst := c.FirstAppearsBook
	patch.Apply(c)
	c.Normalize()
	if err := validate(c); err != nil {
		return nil, err
	}
	if c.FirstAppearsBook != prevFirst {
		if err := s.checkArcReferences(ctx, seriesID, *c); err != nil {
			return nil, err
		}
	}
	c.UpdatedAt = s.stamp()
	if err := s.repo.UpdateCharacter(ctx, c); err != nil {
		return nil, err
	}

	if len(locked) > 0 {
		o := models.Override{
			ID:            s.newID(),
			SeriesID:      seriesID,
			TargetKind:    models.OverrideCharacter,
			TargetID:      characterID,
			Justification: strings.TrimSpace(override.Justification),
			CreatedAt:     c.UpdatedAt,
		}
		if err := s.repo.RecordOverrides(ctx, []models.Override{o}); err != nil {
			return nil, err
		}
		s.logger.Info("locked attribute overridden",
			slog.String("series_id", seriesID),
			slog.String("character_id", characterID),
			slog.String("attributes", strings.Join(locked, ",")))
		s.emit(KindOverride, "recorded", seriesID, o.ID)
	}
	s.emit(KindCharacter, "updated", seriesID, characterID)
	return c, nil
}

// lockedTouched lists the locked attributes a patch would change.
func lockedTouched(c models.Character, p models.CharacterPatch) []string {
	var out []string
	for _, attr := range p.Touched() {
		if c.IsLocked(attr) {
			out = append(out, attr)
		}
	}
	if len(c.LockedAttributes) > 0 {
		if p.CanonLockLevel != nil && *p.CanonLockLevel != c.CanonLockLevel {
			out = append(out, "canon_lock_level")
		}
		if p.LockedAttributes != nil {
			out = append(out, "locked_attributes")
		}
	}
	return out
}

// checkOverride decides whether an override may lift a lock at level.
func checkOverride(level models.LockLevel, override *models.OverrideRequest, what []string) error {
	if override == nil {
		return fmt.Errorf("%w: %s", apperr.ErrLockedAttribute, strings.Join(what, ", "))
	}
	if level == models.LockImmutable {
		return fmt.Errorf("%s: %w", strings.Join(what, ", "), apperr.ErrOverrideRejected)
	}
	if strings.TrimSpace(override.Justification) == "" {
		return apperr.NewValidationError("override.justification", "cannot be blank")
	}
	return nil
}

// checkArcReferences keeps a character's first appearance no later than the
// end of any arc that lists it.
func (s *Service) checkArcReferences(ctx context.Context, seriesID string, c models.Character) error {
	arcs, err := s.repo.ListArcs(ctx, seriesID)
	if err != nil {
		return err
	}
	for _, a := range arcs {
		if a.EndsInBook == nil || *a.EndsInBook >= c.FirstAppearsBook {
			continue
		}
		for _, id := range a.CharacterIDs {
			if id == c.ID {
				return apperr.NewValidationError("first_appears_book",
					fmt.Sprintf("arc %q ends in book %d, before the character appears", a.ArcName, *a.EndsInBook))
			}
		}
	}
	return nil
}
