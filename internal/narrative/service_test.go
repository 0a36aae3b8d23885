package narrative

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/canon"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind + "." + e.Action
	}
	return out
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := &recorder{}
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(testutil.TestDB(t),
		canon.NewEvaluator(canon.NewHeuristic(0), time.Second, logger),
		WithLogger(logger),
		WithClock(func() time.Time { return clock }),
		WithEventHandler(rec.handle),
	)
	return svc, rec
}

func mustSeries(t *testing.T, svc *Service) *models.Series {
	t.Helper()
	s, err := svc.CreateSeries(context.Background(), models.Series{
		AuthorID: "author-1",
		Title:    "The Drowned Crown",
		Genre:    "fantasy",
		Style:    models.Style{Tone: "somber", Pacing: "measured", Audience: "adult"},
	})
	require.NoError(t, err)
	return s
}

func mustCharacter(t *testing.T, svc *Service, seriesID, name string, first int) *models.Character {
	t.Helper()
	c, err := svc.CreateCharacter(context.Background(), seriesID, models.Character{
		Name: name, Role: models.RoleSupporting, FirstAppearsBook: first,
	})
	require.NoError(t, err)
	return c
}

func characterNames(gc *models.GenerationContext) []string {
	out := []string{}
	for _, c := range gc.ActiveCharacters {
		out = append(out, c.Name)
	}
	return out
}

func requireField(t *testing.T, err error, field string) {
	t.Helper()
	require.ErrorIs(t, err, apperr.ErrValidation)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, field)
}

func TestResurrectionScenario(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	_, err := svc.CreateCharacter(ctx, s.ID, models.Character{
		Name: "Aria", Role: models.RoleProtagonist, Status: models.StatusActive, FirstAppearsBook: 1,
	})
	require.NoError(t, err)
	rule, err := svc.CreateCanonRule(ctx, s.ID, models.CanonRule{
		RuleCategory:    models.CategoryCharacter,
		RuleName:        "No resurrection",
		RuleType:        models.RuleMustNot,
		LockLevel:       models.LockHard,
		AppliesFromBook: 1,
		InvalidExamples: []string{"Aria died and returned to life"},
	})
	require.NoError(t, err)

	gc, err := svc.CompileGenerationContext(ctx, s.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"Aria"}, characterNames(gc))
	require.Len(t, gc.CanonRules, 1)
	assert.Equal(t, rule.ID, gc.CanonRules[0].ID)

	report, err := svc.EvaluateCanon(ctx, gc, "In book five Aria died at the siege of Varn, then returned to life.")
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, rule.ID, report.Violations[0].RuleID)
	assert.Equal(t, models.LockHard, report.Violations[0].LockLevel)
	assert.True(t, report.Violations[0].Severity.Blocks())
}

func TestResurrectionScenario_RuleWithoutExamples(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	mustCharacter(t, svc, s.ID, "Aria", 1)
	rule, err := svc.CreateCanonRule(ctx, s.ID, models.CanonRule{
		RuleCategory:    models.CategoryCharacter,
		RuleName:        "No resurrection",
		RuleType:        models.RuleMustNot,
		LockLevel:       models.LockHard,
		AppliesFromBook: 1,
	})
	require.NoError(t, err)

	report, err := svc.EvaluateText(ctx, s.ID, 5, "Aria died in the flood, and by winter she had returned to life.")
	require.NoError(t, err)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, rule.ID, report.Violations[0].RuleID)
	assert.Equal(t, models.LockHard, report.Violations[0].LockLevel)
}

func TestCharacterScopeByFirstAppearance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	mustCharacter(t, svc, s.ID, "Wren", 3)

	for book, want := range map[int]bool{2: false, 3: true, 10: true} {
		gc, err := svc.CompileGenerationContext(ctx, s.ID, book)
		require.NoError(t, err)
		assert.Equal(t, want, len(gc.ActiveCharacters) == 1, "book %d", book)
	}
}

func TestRuleAndArcWindows(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	_, err := svc.CreateCanonRule(ctx, s.ID, models.CanonRule{
		RuleCategory: models.CategoryTimeline, RuleName: "Curfew", RuleType: models.RuleMust,
		LockLevel: models.LockSoft, AppliesFromBook: 2, AppliesUntilBook: models.IntPtr(4),
	})
	require.NoError(t, err)
	_, err = svc.CreateNarrativeArc(ctx, s.ID, models.NarrativeArc{
		ArcName: "Betrayal", ArcType: models.ArcPlot, StartsInBook: 2, EndsInBook: models.IntPtr(4),
	})
	require.NoError(t, err)

	for book := 1; book <= 5; book++ {
		gc, err := svc.CompileGenerationContext(ctx, s.ID, book)
		require.NoError(t, err)
		want := book >= 2 && book <= 4
		assert.Equal(t, want, len(gc.CanonRules) == 1, "rule at book %d", book)
		assert.Equal(t, want, len(gc.ActiveArcs) == 1, "arc at book %d", book)
	}
}

func TestBookNumbersBelowOneRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	_, err := svc.CreateCharacter(ctx, s.ID, models.Character{Name: "Aria", Role: models.RoleProtagonist})
	requireField(t, err, "first_appears_book")

	_, err = svc.CreateWorldElement(ctx, s.ID, models.WorldElement{Name: "Varn", ElementType: models.ElementGeography})
	requireField(t, err, "introduced_in_book")

	_, err = svc.CreateNarrativeArc(ctx, s.ID, models.NarrativeArc{ArcName: "Betrayal", ArcType: models.ArcPlot})
	requireField(t, err, "starts_in_book")

	_, err = svc.CreateCanonRule(ctx, s.ID, models.CanonRule{
		RuleCategory: models.CategoryPlot, RuleName: "Curfew", RuleType: models.RuleMust,
		LockLevel: models.LockSoft, AppliesFromBook: 3, AppliesUntilBook: models.IntPtr(2),
	})
	requireField(t, err, "applies_until_book")

	_, err = svc.CreateBook(ctx, s.ID, models.Book{BookNumber: 0, Title: "Prologue"})
	requireField(t, err, "book_number")
}

func TestCompileIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	mustCharacter(t, svc, s.ID, "Aria", 1)
	mustCharacter(t, svc, s.ID, "Mott", 2)
	_, err := svc.CreateWorldElement(ctx, s.ID, models.WorldElement{
		Name: "Varn", ElementType: models.ElementGeography, IntroducedInBook: 1,
		Description: models.Descriptions{Short: "Sunken capital"},
	})
	require.NoError(t, err)

	first, err := svc.CompileGenerationContext(ctx, s.ID, 3)
	require.NoError(t, err)
	second, err := svc.CompileGenerationContext(ctx, s.ID, 3)
	require.NoError(t, err)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("contexts differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, "somber", first.ToneGuidance)
	assert.Equal(t, map[string]string{"Varn": "geography: Sunken capital"}, first.WorldState)
}

func TestCompileErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	_, err := svc.CompileGenerationContext(ctx, s.ID, 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidScope)
	_, err = svc.CompileGenerationContext(ctx, "ghost", 1)
	assert.ErrorIs(t, err, apperr.ErrSeriesNotFound)
	_, err = svc.GetSeriesCharacters(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrSeriesNotFound)
}

func TestRetiredCharacterScopedByBook(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	c := mustCharacter(t, svc, s.ID, "Mott", 1)

	status := models.StatusRetired
	_, err := svc.UpdateCharacter(ctx, s.ID, c.ID, c.Version,
		models.CharacterPatch{Status: &status, RetiredInBook: models.IntPtr(2)}, nil)
	require.NoError(t, err)

	gc2, _ := svc.CompileGenerationContext(ctx, s.ID, 2)
	gc3, _ := svc.CompileGenerationContext(ctx, s.ID, 3)
	assert.Equal(t, []string{"Mott"}, characterNames(gc2))
	assert.Empty(t, gc3.ActiveCharacters)
}

func TestLockedAttributes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	c, err := svc.CreateCharacter(ctx, s.ID, models.Character{
		Name: "Aria", Role: models.RoleProtagonist, FirstAppearsBook: 1,
		CanonLockLevel: models.LockHard, LockedAttributes: []string{models.AttrName},
	})
	require.NoError(t, err)

	style := "clipped, formal"
	c, err = svc.UpdateCharacter(ctx, s.ID, c.ID, 0, models.CharacterPatch{DialogueStyle: &style}, nil)
	require.NoError(t, err, "unlocked attribute needs no override")

	name := "Aria Vell"
	_, err = svc.UpdateCharacter(ctx, s.ID, c.ID, 0, models.CharacterPatch{Name: &name}, nil)
	assert.ErrorIs(t, err, apperr.ErrLockedAttribute)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = svc.UpdateCharacter(ctx, s.ID, c.ID, 0, models.CharacterPatch{Name: &name},
		&models.OverrideRequest{Justification: " "})
	requireField(t, err, "override.justification")

	level := models.LockSoft
	_, err = svc.UpdateCharacter(ctx, s.ID, c.ID, 0, models.CharacterPatch{CanonLockLevel: &level}, nil)
	assert.ErrorIs(t, err, apperr.ErrLockedAttribute, "lowering the lock counts as touching it")

	updated, err := svc.UpdateCharacter(ctx, s.ID, c.ID, 0, models.CharacterPatch{Name: &name},
		&models.OverrideRequest{Justification: "She takes her mother's name after the coronation."})
	require.NoError(t, err)
	assert.Equal(t, "Aria Vell", updated.Name)

	overrides, err := svc.ListOverrides(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, models.OverrideCharacter, overrides[0].TargetKind)
	assert.Equal(t, c.ID, overrides[0].TargetID)
}

func TestImmutableCharacterRejectsOverride(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	c, err := svc.CreateCharacter(ctx, s.ID, models.Character{
		Name: "Aria", Role: models.RoleProtagonist, FirstAppearsBook: 1,
		CanonLockLevel: models.LockImmutable, LockedAttributes: []string{models.AttrName},
	})
	require.NoError(t, err)

	name := "Someone Else"
	_, err = svc.UpdateCharacter(ctx, s.ID, c.ID, 0, models.CharacterPatch{Name: &name},
		&models.OverrideRequest{Justification: "new draft"})
	assert.ErrorIs(t, err, apperr.ErrOverrideRejected)
}

func TestArcTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	a, err := svc.CreateNarrativeArc(ctx, s.ID, models.NarrativeArc{ArcName: "Betrayal", ArcType: models.ArcPlot, StartsInBook: 1})
	require.NoError(t, err)
	assert.Equal(t, models.ArcSetup, a.ArcStatus)

	a, err = svc.TransitionArc(ctx, s.ID, a.ID, a.Version, models.ArcRising)
	require.NoError(t, err)
	assert.Equal(t, 2, a.Version)

	_, err = svc.TransitionArc(ctx, s.ID, a.ID, a.Version, models.ArcSetup)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = svc.TransitionArc(ctx, s.ID, a.ID, a.Version, models.ArcFalling)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	a, err = svc.TransitionArc(ctx, s.ID, a.ID, a.Version, models.ArcAbandoned)
	require.NoError(t, err)
	_, err = svc.TransitionArc(ctx, s.ID, a.ID, a.Version, models.ArcRising)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	_, err = svc.SetArcCompletion(ctx, s.ID, a.ID, a.Version, 101)
	requireField(t, err, "completion_percentage")
	a, err = svc.SetArcCompletion(ctx, s.ID, a.ID, a.Version, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, a.CompletionPercentage)
}

func TestArcCharacterReferences(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	wren := mustCharacter(t, svc, s.ID, "Wren", 5)

	_, err := svc.CreateNarrativeArc(ctx, s.ID, models.NarrativeArc{
		ArcName: "Betrayal", ArcType: models.ArcPlot, StartsInBook: 2, EndsInBook: models.IntPtr(4),
		CharacterIDs: []string{wren.ID},
	})
	requireField(t, err, "character_ids.0")

	_, err = svc.CreateNarrativeArc(ctx, s.ID, models.NarrativeArc{
		ArcName: "Betrayal", ArcType: models.ArcPlot, StartsInBook: 2, CharacterIDs: []string{"nobody"},
	})
	requireField(t, err, "character_ids.0")

	aria := mustCharacter(t, svc, s.ID, "Aria", 1)
	_, err = svc.CreateNarrativeArc(ctx, s.ID, models.NarrativeArc{
		ArcName: "Betrayal", ArcType: models.ArcPlot, StartsInBook: 2, EndsInBook: models.IntPtr(4),
		CharacterIDs: []string{aria.ID},
	})
	require.NoError(t, err)

	_, err = svc.UpdateCharacter(ctx, s.ID, aria.ID, 0, models.CharacterPatch{FirstAppearsBook: models.IntPtr(6)}, nil)
	requireField(t, err, "first_appears_book")
}

func TestStaleVersionConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	title := "The Risen Crown"
	updated, err := svc.UpdateSeries(ctx, s.ID, s.Version, models.SeriesPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	_, err = svc.UpdateSeries(ctx, s.ID, s.Version, models.SeriesPatch{Title: &title})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestArchivedSeriesIsReadOnly(t *testing.T) {
	svc, rec := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	mustCharacter(t, svc, s.ID, "Aria", 1)

	archived, err := svc.ArchiveSeries(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	_, err = svc.CreateCharacter(ctx, s.ID, models.Character{Name: "Late", Role: models.RoleMinor, FirstAppearsBook: 1})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	gc, err := svc.CompileGenerationContext(ctx, s.ID, 1)
	require.NoError(t, err)
	assert.Len(t, gc.ActiveCharacters, 1)

	assert.Equal(t, []string{"series.created", "character.created", "series.archived"}, rec.types())
}

func TestDuplicateBookNumber(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	_, err := svc.CreateBook(ctx, s.ID, models.Book{BookNumber: 1, Title: "Tides"})
	require.NoError(t, err)
	_, err = svc.CreateBook(ctx, s.ID, models.Book{BookNumber: 1, Title: "Tides again"})
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)

	books, err := svc.GetSeriesBooks(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Tides", books[0].Title)
}

func TestReviewContent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)

	hard, err := svc.CreateCanonRule(ctx, s.ID, models.CanonRule{
		RuleCategory: models.CategoryCharacter, RuleName: "No resurrection", RuleType: models.RuleMustNot,
		LockLevel: models.LockHard, AppliesFromBook: 1, InvalidExamples: []string{"Aria died and returned to life"},
	})
	require.NoError(t, err)
	_, err = svc.CreateCanonRule(ctx, s.ID, models.CanonRule{
		RuleCategory: models.CategoryWorld, RuleName: "The sea never freezes", RuleType: models.RuleMustNot,
		LockLevel: models.LockImmutable, AppliesFromBook: 1, InvalidExamples: []string{"the sea froze solid"},
	})
	require.NoError(t, err)

	text := "Aria died, and returned to life at dawn."

	review, err := svc.ReviewContent(ctx, s.ID, 5, text, models.Acknowledgement{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionBlocked, review.Decision)

	ack := models.Acknowledgement{Overrides: []models.OverrideRequest{{TargetID: hard.ID, Justification: "It is a dream."}}}
	review, err = svc.ReviewContent(ctx, s.ID, 5, text, ack)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAccepted, review.Decision)
	require.Len(t, review.Overrides, 1)
	assert.Equal(t, 5, review.Overrides[0].BookNumber)

	overrides, err := svc.ListOverrides(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, models.OverrideCanonRule, overrides[0].TargetKind)

	review, err = svc.ReviewContent(ctx, s.ID, 5, "That winter the sea froze solid.", models.Acknowledgement{Confirmed: true})
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, review.Decision)
}

func TestConcurrentWritesSerializedPerSeries(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	s := mustSeries(t, svc)
	a, err := svc.CreateNarrativeArc(ctx, s.ID, models.NarrativeArc{ArcName: "Betrayal", ArcType: models.ArcPlot, StartsInBook: 1})
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(pct int) {
			defer wg.Done()
			_, err := svc.SetArcCompletion(ctx, s.ID, a.ID, 0, pct)
			errs <- err
		}(i * 10)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	arcs, err := svc.GetNarrativeArcs(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, arcs, 1)
	assert.Equal(t, 1+writers, arcs[0].Version)
}
