package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

type fakeSource struct {
	snaps map[string]*models.SeriesSnapshot
	calls int
}

func (f *fakeSource) Snapshot(_ context.Context, seriesID string) (*models.SeriesSnapshot, error) {
	f.calls++
	snap, ok := f.snaps[seriesID]
	if !ok {
		return nil, apperr.ErrSeriesNotFound
	}
	return snap, nil
}

func crownSnapshot() *models.SeriesSnapshot {
	return &models.SeriesSnapshot{
		Series: models.Series{
			ID: "s1", Title: "The Drowned Crown", Genre: "fantasy",
			Premise: "A queen rules a sunken city.", MainConflict: "Succession",
			PlannedEnding: "The crown is lost forever.",
			Style:         models.Style{Tone: "somber", Pacing: "slow burn", Audience: "adult"},
		},
		Characters: []models.Character{
			{ID: "c1", Name: "Aria", Role: models.RoleProtagonist, Status: models.StatusActive, FirstAppearsBook: 1},
			{ID: "c2", Name: "Wren", Role: models.RoleAntagonist, Status: models.StatusActive, FirstAppearsBook: 3},
			{ID: "c3", Name: "Mott", Role: models.RoleMinor, Status: models.StatusRetired, FirstAppearsBook: 1},
		},
		WorldElements: []models.WorldElement{
			{ID: "w1", Name: "Varn", ElementType: models.ElementGeography, IntroducedInBook: 1, IsActive: true,
				Description: models.Descriptions{Short: "Sunken capital"}},
			{ID: "w2", Name: "The Weave", ElementType: models.ElementMagicSystem, IntroducedInBook: 4, IsActive: true},
		},
		Arcs: []models.NarrativeArc{
			{ID: "a1", ArcName: "Betrayal", ArcType: models.ArcPlot, ArcStatus: models.ArcRising,
				StartsInBook: 2, EndsInBook: models.IntPtr(4), CompletionPercentage: 30},
		},
		Rules: []models.CanonRule{
			{ID: "r1", RuleName: "No resurrection", RuleType: models.RuleMustNot, LockLevel: models.LockHard, AppliesFromBook: 1},
			{ID: "r2", RuleName: "Curfew", RuleType: models.RuleMust, LockLevel: models.LockSoft,
				AppliesFromBook: 2, AppliesUntilBook: models.IntPtr(4)},
		},
	}
}

func TestCompileScopesByBook(t *testing.T) {
	src := &fakeSource{snaps: map[string]*models.SeriesSnapshot{"s1": crownSnapshot()}}
	c := New(src)

	gc, err := c.Compile(context.Background(), "s1", 2)
	require.NoError(t, err)

	assert.Equal(t, []models.CharacterSummary{
		{ID: "c1", Name: "Aria", Role: models.RoleProtagonist, Status: models.StatusActive},
	}, gc.ActiveCharacters)
	require.Len(t, gc.ActiveArcs, 1)
	assert.Equal(t, "Betrayal", gc.ActiveArcs[0].Name)
	require.Len(t, gc.CanonRules, 2)
	assert.Equal(t, map[string]string{"Varn": "geography: Sunken capital"}, gc.WorldState)
	assert.Equal(t, "somber", gc.ToneGuidance)
	assert.Equal(t, "slow burn", gc.PacingGuidance)
	assert.Equal(t, "adult", gc.Audience)
	assert.NotEmpty(t, gc.Fingerprint)

	gc5, err := c.Compile(context.Background(), "s1", 5)
	require.NoError(t, err)
	assert.Len(t, gc5.ActiveCharacters, 2)
	assert.Empty(t, gc5.ActiveArcs)
	require.Len(t, gc5.CanonRules, 1)
	assert.Equal(t, "r1", gc5.CanonRules[0].ID)
	assert.Contains(t, gc5.WorldState, "The Weave")
}

func TestCompileIsDeterministic(t *testing.T) {
	src := &fakeSource{snaps: map[string]*models.SeriesSnapshot{"s1": crownSnapshot()}}
	c := New(src)

	first, err := c.Compile(context.Background(), "s1", 4)
	require.NoError(t, err)
	second, err := c.Compile(context.Background(), "s1", 4)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("compile not idempotent (-first +second):\n%s", diff)
	}

	other, err := c.Compile(context.Background(), "s1", 3)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint, other.Fingerprint)
}

func TestCompileNeverLeaksPlannedEnding(t *testing.T) {
	gc, err := Build(crownSnapshot(), 1)
	require.NoError(t, err)
	assert.NotContains(t, gc.Premise+gc.MainConflict+gc.ToneGuidance, "lost forever")
}

func TestCompileInvalidScopeSkipsStore(t *testing.T) {
	src := &fakeSource{snaps: map[string]*models.SeriesSnapshot{}}
	_, err := New(src).Compile(context.Background(), "s1", 0)
	assert.True(t, errors.Is(err, apperr.ErrInvalidScope), "err = %v", err)
	assert.Zero(t, src.calls)
}

func TestCompileUnknownSeries(t *testing.T) {
	src := &fakeSource{snaps: map[string]*models.SeriesSnapshot{}}
	_, err := New(src).Compile(context.Background(), "ghost", 1)
	assert.True(t, errors.Is(err, apperr.ErrSeriesNotFound), "err = %v", err)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestFingerprintIgnoresItself(t *testing.T) {
	gc, err := Build(crownSnapshot(), 2)
	require.NoError(t, err)
	again, err := Fingerprint(gc)
	require.NoError(t, err)
	assert.Equal(t, gc.Fingerprint, again)
}
