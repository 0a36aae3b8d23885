// Package compiler builds book-scoped generation contexts from a series
// snapshot.
package compiler

import (
	"context"
	"fmt"

	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/scope"
)

// SnapshotSource reads one consistent view of a series.
type SnapshotSource interface {
	Snapshot(ctx context.Context, seriesID string) (*models.SeriesSnapshot, error)
}

// Compiler turns stored series state into a GenerationContext.
type Compiler struct {
	src SnapshotSource
}

// New creates a Compiler reading from src.
func New(src SnapshotSource) *Compiler {
	return &Compiler{src: src}
}

// Compile returns the generation context for seriesID at targetBook.
// It fails with apperr.ErrInvalidScope before touching the store when
// targetBook < 1, and with apperr.ErrSeriesNotFound for unknown series.
func (c *Compiler) Compile(ctx context.Context, seriesID string, targetBook int) (*models.GenerationContext, error) {
	if err := scope.CheckBook(targetBook); err != nil {
		return nil, err
	}
	snap, err := c.src.Snapshot(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	return Build(snap, targetBook)
}

// Build compiles a context from an already loaded snapshot.
func Build(snap *models.SeriesSnapshot, targetBook int) (*models.GenerationContext, error) {
	active, err := scope.Resolve(snap, targetBook)
	if err != nil {
		return nil, err
	}

	s := snap.Series
	gc := &models.GenerationContext{
		SeriesID:         s.ID,
		TargetBook:       targetBook,
		SeriesTitle:      s.Title,
		Genre:            s.Genre,
		Premise:          s.Premise,
		MainConflict:     s.MainConflict,
		ToneGuidance:     s.Style.Tone,
		PacingGuidance:   s.Style.Pacing,
		Audience:         s.Style.Audience,
		ActiveCharacters: make([]models.CharacterSummary, 0, len(active.Characters)),
		ActiveArcs:       make([]models.ArcSummary, 0, len(active.Arcs)),
		CanonRules:       active.Rules,
		WorldState:       make(map[string]string, len(active.WorldElements)),
	}
	for _, ch := range active.Characters {
		gc.ActiveCharacters = append(gc.ActiveCharacters, models.CharacterSummary{
			ID:     ch.ID,
			Name:   ch.Name,
			Role:   ch.Role,
			Status: ch.Status,
		})
	}
	for _, a := range active.Arcs {
		gc.ActiveArcs = append(gc.ActiveArcs, models.ArcSummary{
			ID:                   a.ID,
			Name:                 a.ArcName,
			Type:                 a.ArcType,
			Status:               a.ArcStatus,
			CompletionPercentage: a.CompletionPercentage,
		})
	}
	for _, w := range active.WorldElements {
		gc.WorldState[w.Name] = w.Digest()
	}

	fp, err := Fingerprint(gc)
	if err != nil {
		return nil, err
	}
	gc.Fingerprint = fp
	return gc, nil
}

// Fingerprint hashes the canonical JSON of gc with its Fingerprint field
// cleared. Map keys are emitted sorted, so equal contexts hash equally.
func Fingerprint(gc *models.GenerationContext) (string, error) {
	cp := *gc
	cp.Fingerprint = ""
	fp, err := checksum.JSON(&cp)
	if err != nil {
		return "", fmt.Errorf("compiler: fingerprint: %w", err)
	}
	return fp, nil
}
