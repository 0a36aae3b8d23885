package bundle

import (
	"context"
	"log/slog"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/checksum"
	"github.com/starford/saga/internal/models"
	"github.com/starford/saga/internal/storage"
)

// Collect reads a series and everything it owns into a Bundle.
func (im *Importer) Collect(ctx context.Context, seriesID string) (*Bundle, error) {
	series, err := im.svc.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	b := &Bundle{Series: *series}
	if b.Books, err = im.svc.GetSeriesBooks(ctx, seriesID); err != nil {
		return nil, err
	}
	if b.Characters, err = im.svc.GetSeriesCharacters(ctx, seriesID); err != nil {
		return nil, err
	}
	if b.WorldElements, err = im.svc.GetWorldElements(ctx, seriesID); err != nil {
		return nil, err
	}
	if b.CanonRules, err = im.svc.GetCanonRules(ctx, seriesID); err != nil {
		return nil, err
	}

	arcs, err := im.svc.GetNarrativeArcs(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(b.Characters))
	for _, c := range b.Characters {
		names[c.ID] = c.Name
	}
	b.Arcs = make([]Arc, 0, len(arcs))
	for _, a := range arcs {
		arc := Arc{NarrativeArc: a}
		for _, id := range a.CharacterIDs {
			if name, ok := names[id]; ok {
				arc.Characters = append(arc.Characters, name)
			}
		}
		b.Arcs = append(b.Arcs, arc)
	}
	return b, nil
}

// Export writes a series to path as a bundle. The import ledger is updated
// before the file is written so the watcher does not import it back.
func (im *Importer) Export(ctx context.Context, seriesID, path string) error {
	if !storage.IsBundle(path) {
		return apperr.NewValidationError("path", "must end in .yaml or .yml")
	}
	b, err := im.Collect(ctx, seriesID)
	if err != nil {
		return err
	}
	data, err := Marshal(b)
	if err != nil {
		return err
	}
	err = im.ledger.RecordBundleImport(ctx, models.BundleImport{
		Path:       path,
		Checksum:   checksum.Sum(data),
		SeriesID:   seriesID,
		ImportedAt: im.now().UTC(),
	})
	if err != nil {
		return err
	}
	if err := im.files.Write(path, data); err != nil {
		return err
	}
	im.logger.Info("bundle exported", slog.String("path", path), slog.String("series_id", seriesID))
	return nil
}
