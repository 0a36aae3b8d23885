package bundle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/narrative"
	"github.com/starford/saga/internal/storage"
)

// Ledger remembers which bundle revision was last imported from each path.
type Ledger interface {
	BundleImports(ctx context.Context) (map[string]models.BundleImport, error)
	RecordBundleImport(ctx context.Context, bi models.BundleImport) error
}

// Result describes one imported bundle.
type Result struct {
	Path          string `json:"path"`
	SeriesID      string `json:"series_id"`
	SeriesCreated bool   `json:"series_created"`
	// Created counts the books, characters, world elements, arcs and rules
	// added by the import.
	Created int `json:"created"`
	// Updated counts series and book metadata changes.
	Updated int `json:"updated"`
}

// Importer merges bundle files into the store through the narrative
// service, so every import obeys the same validation and events as an
// author edit.
//
// Merging is additive. Entities are matched by natural key (book number,
// character name, world element name, arc name, rule name, all ignoring
// case); unmatched entries are created and matched ones are left alone,
// except series and book metadata which follow the file.
type Importer struct {
	svc    *narrative.Service
	ledger Ledger
	files  storage.Provider
	logger *slog.Logger
	now    func() time.Time
}

// NewImporter returns an Importer reading bundles from files.
func NewImporter(svc *narrative.Service, ledger Ledger, files storage.Provider, logger *slog.Logger) *Importer {
	return &Importer{svc: svc, ledger: ledger, files: files, logger: logger, now: time.Now}
}

// Sync imports every bundle whose content changed since its last import.
// A file that fails to import is logged and retried on the next sync.
func (im *Importer) Sync(ctx context.Context) ([]Result, error) {
	metas, err := im.files.List("")
	if err != nil {
		return nil, err
	}
	known, err := im.ledger.BundleImports(ctx)
	if err != nil {
		return nil, err
	}

	var out []Result
	for _, m := range metas {
		if known[m.Path].Checksum == m.Checksum {
			continue
		}
		res, err := im.ImportFile(ctx, m.Path)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			im.logger.Warn("sync: import failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		im.logger.Debug("sync: imported", slog.String("path", m.Path), slog.String("series_id", res.SeriesID))
		out = append(out, *res)
	}
	return out, nil
}

// ImportFile parses the bundle at path and merges it into its series. The
// import is recorded only when every entry was merged.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	data, err := im.files.Read(path)
	if err != nil {
		return nil, err
	}
	b, err := Parse(data)
	if err != nil {
		return nil, err
	}
	known, err := im.ledger.BundleImports(ctx)
	if err != nil {
		return nil, err
	}

	res, err := im.Apply(ctx, b, known[path].SeriesID)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", path, err)
	}
	res.Path = path

	err = im.ledger.RecordBundleImport(ctx, models.BundleImport{
		Path:       path,
		Checksum:   checksum.Sum(data),
		SeriesID:   res.SeriesID,
		ImportedAt: im.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	im.logger.Info("bundle imported",
		slog.String("path", path),
		slog.String("series_id", res.SeriesID),
		slog.Int("created", res.Created),
		slog.Int("updated", res.Updated))
	return res, nil
}

// Apply merges b into a series. The series is found by the bundle's own id,
// then by knownSeriesID; when neither exists a new series is created.
// Nothing is written when the bundle fails validation.
func (im *Importer) Apply(ctx context.Context, b *Bundle, knownSeriesID string) (*Result, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	series, created, err := im.resolveSeries(ctx, b, knownSeriesID)
	if err != nil {
		return nil, err
	}
	res := &Result{SeriesID: series.ID, SeriesCreated: created}

	if !created {
		if patch, ok := seriesPatch(*series, b.Series); ok {
			if _, err := im.svc.UpdateSeries(ctx, series.ID, series.Version, patch); err != nil {
				return nil, fmt.Errorf("series: %w", err)
			}
			res.Updated++
		}
	}

	steps := []func(context.Context, string, *Bundle, *Result) error{
		im.mergeBooks,
		im.mergeCharacters,
		im.mergeWorldElements,
		im.mergeArcs,
		im.mergeRules,
	}
	for _, step := range steps {
		if err := step(ctx, series.ID, b, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (im *Importer) resolveSeries(ctx context.Context, b *Bundle, knownSeriesID string) (*models.Series, bool, error) {
	for _, id := range []string{b.Series.ID, knownSeriesID} {
		if id == "" {
			continue
		}
		s, err := im.svc.GetSeries(ctx, id)
		if err == nil {
			return s, false, nil
		}
		if !errors.Is(err, apperr.ErrSeriesNotFound) {
			return nil, false, err
		}
	}
	s, err := im.svc.CreateSeries(ctx, b.Series)
	if err != nil {
		return nil, false, fmt.Errorf("series: %w", err)
	}
	return s, true, nil
}

// seriesPatch returns the fields of want that differ from have.
func seriesPatch(have, want models.Series) (models.SeriesPatch, bool) {
	want.Normalize()
	var p models.SeriesPatch
	changed := false
	setString := func(dst **string, h, w string) {
		if h != w {
			*dst = &w
			changed = true
		}
	}
	setString(&p.Title, have.Title, want.Title)
	setString(&p.Genre, have.Genre, want.Genre)
	setString(&p.Premise, have.Premise, want.Premise)
	setString(&p.MainConflict, have.MainConflict, want.MainConflict)
	setString(&p.PlannedEnding, have.PlannedEnding, want.PlannedEnding)
	if have.TargetBookCount != want.TargetBookCount {
		p.TargetBookCount = &want.TargetBookCount
		changed = true
	}
	if have.Style != want.Style {
		p.Style = &want.Style
		changed = true
	}
	return p, changed
}

func (im *Importer) mergeBooks(ctx context.Context, seriesID string, b *Bundle, res *Result) error {
	existing, err := im.svc.GetSeriesBooks(ctx, seriesID)
	if err != nil {
		return err
	}
	byNumber := make(map[int]models.Book, len(existing))
	for _, book := range existing {
		byNumber[book.BookNumber] = book
	}
	for _, want := range b.Books {
		want.Normalize()
		have, ok := byNumber[want.BookNumber]
		if !ok {
			created, err := im.svc.CreateBook(ctx, seriesID, want)
			if err != nil {
				return fmt.Errorf("book %d: %w", want.BookNumber, err)
			}
			byNumber[created.BookNumber] = *created
			res.Created++
			continue
		}
		var patch models.BookPatch
		if have.Title != want.Title {
			patch.Title = &want.Title
		}
		if have.WordCount != want.WordCount {
			patch.WordCount = &want.WordCount
		}
		if patch.Title == nil && patch.WordCount == nil {
			continue
		}
		if _, err := im.svc.UpdateBook(ctx, seriesID, have.ID, have.Version, patch); err != nil {
			return fmt.Errorf("book %d: %w", want.BookNumber, err)
		}
		res.Updated++
	}
	return nil
}

func (im *Importer) mergeCharacters(ctx context.Context, seriesID string, b *Bundle, res *Result) error {
	existing, err := im.svc.GetSeriesCharacters(ctx, seriesID)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		seen[key(c.Name)] = struct{}{}
	}
	for _, want := range b.Characters {
		if _, ok := seen[key(want.Name)]; ok {
			continue
		}
		if _, err := im.svc.CreateCharacter(ctx, seriesID, want); err != nil {
			return fmt.Errorf("character %q: %w", want.Name, err)
		}
		seen[key(want.Name)] = struct{}{}
		res.Created++
	}
	return nil
}

func (im *Importer) mergeWorldElements(ctx context.Context, seriesID string, b *Bundle, res *Result) error {
	existing, err := im.svc.GetWorldElements(ctx, seriesID)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, w := range existing {
		seen[key(w.Name)] = struct{}{}
	}
	for _, want := range b.WorldElements {
		if _, ok := seen[key(want.Name)]; ok {
			continue
		}
		if _, err := im.svc.CreateWorldElement(ctx, seriesID, want); err != nil {
			return fmt.Errorf("world element %q: %w", want.Name, err)
		}
		seen[key(want.Name)] = struct{}{}
		res.Created++
	}
	return nil
}

func (im *Importer) mergeArcs(ctx context.Context, seriesID string, b *Bundle, res *Result) error {
	existing, err := im.svc.GetNarrativeArcs(ctx, seriesID)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		seen[key(a.ArcName)] = struct{}{}
	}

	characters, err := im.svc.GetSeriesCharacters(ctx, seriesID)
	if err != nil {
		return err
	}
	ids := make(map[string]string, len(characters))
	for _, c := range characters {
		ids[key(c.Name)] = c.ID
	}

	for i, want := range b.Arcs {
		if _, ok := seen[key(want.ArcName)]; ok {
			continue
		}
		arc := want.NarrativeArc
		for _, name := range want.Characters {
			id, ok := ids[key(name)]
			if !ok {
				return apperr.NewValidationError(fmt.Sprintf("arcs.%d.characters", i),
					fmt.Sprintf("unknown character %q", name))
			}
			arc.CharacterIDs = append(arc.CharacterIDs, id)
		}
		if _, err := im.svc.CreateNarrativeArc(ctx, seriesID, arc); err != nil {
			return fmt.Errorf("arc %q: %w", want.ArcName, err)
		}
		seen[key(want.ArcName)] = struct{}{}
		res.Created++
	}
	return nil
}

func (im *Importer) mergeRules(ctx context.Context, seriesID string, b *Bundle, res *Result) error {
	existing, err := im.svc.GetCanonRules(ctx, seriesID)
	if err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[key(r.RuleName)] = struct{}{}
	}
	for _, want := range b.CanonRules {
		if _, ok := seen[key(want.RuleName)]; ok {
			continue
		}
		if _, err := im.svc.CreateCanonRule(ctx, seriesID, want); err != nil {
			return fmt.Errorf("canon rule %q: %w", want.RuleName, err)
		}
		seen[key(want.RuleName)] = struct{}{}
		res.Created++
	}
	return nil
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
