package narrative

import (
	"context"
	"log/slog"

	"github.com/starford/saga/internal/models"
)

// CreateSeries assigns an id and stores a new series.
func (s *Service) CreateSeries(ctx context.Context, in models.Series) (*models.Series, error) {
	now := s.stamp()
	in.ID = s.newID()
	in.Archived = false
	in.Version = 1
	in.CreatedAt, in.UpdatedAt = now, now
	in.Normalize()
	if err := validate(in); err != nil {
		return nil, err
	}
	if err := s.repo.CreateSeries(ctx, &in); err != nil {
		return nil, err
	}
	s.logger.Info("series created", slog.String("series_id", in.ID), slog.String("author_id", in.AuthorID))
	s.emit(KindSeries, "created", in.ID, in.ID)
	return &in, nil
}

// GetSeries returns one series or apperr.ErrSeriesNotFound.
func (s *Service) GetSeries(ctx context.Context, seriesID string) (*models.Series, error) {
	series, err := s.repo.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, seriesErr(err)
	}
	return series, nil
}

// ListSeries returns the series of an author, or every series when
// authorID is empty.
func (s *Service) ListSeries(ctx context.Context, authorID string) ([]models.Series, error) {
	return s.repo.ListSeries(ctx, authorID)
}

// UpdateSeries applies patch to a series whose version still equals version.
func (s *Service) UpdateSeries(ctx context.Context, seriesID string, version int, patch models.SeriesPatch) (*models.Series, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	series, err := s.writable(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(version, series.Version); err != nil {
		return nil, err
	}
	patch.Apply(series)
	series.Normalize()
	if err := validate(series); err != nil {
		return nil, err
	}
	series.UpdatedAt = s.stamp()
	if err := s.repo.UpdateSeries(ctx, series); err != nil {
		return nil, err
	}
	s.emit(KindSeries, "updated", seriesID, seriesID)
	return series, nil
}

// ArchiveSeries soft-archives a series. Archived series remain readable and
// compilable but reject further writes. Archiving twice is a no-op.
func (s *Service) ArchiveSeries(ctx context.Context, seriesID string) (*models.Series, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	series, err := s.repo.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, seriesErr(err)
	}
	if series.Archived {
		return series, nil
	}
	series.Archived = true
	series.UpdatedAt = s.stamp()
	if err := s.repo.UpdateSeries(ctx, series); err != nil {
		return nil, err
	}
	s.logger.Info("series archived", slog.String("series_id", seriesID))
	s.emit(KindSeries, "archived", seriesID, seriesID)
	return series, nil
}

// CreateBook adds a book to a series. Book numbers are unique per series.
func (s *Service) CreateBook(ctx context.Context, seriesID string, in models.Book) (*models.Book, error) {
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
	if err := s.repo.CreateBook(ctx, &in); err != nil {
		return nil, err
	}
	s.emit(KindBook, "created", seriesID, in.ID)
	return &in, nil
}

// GetSeriesBooks returns the books of a series in creation order.
func (s *Service) GetSeriesBooks(ctx context.Context, seriesID string) ([]models.Book, error) {
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.ListBooks(ctx, seriesID)
}

// UpdateBook changes a book's title or word count. The book number is fixed.
func (s *Service) UpdateBook(ctx context.Context, seriesID, bookID string, version int, patch models.BookPatch) (*models.Book, error) {
	unlock := s.locks.lock(seriesID)
	defer unlock()

	if _, err := s.writable(ctx, seriesID); err != nil {
		return nil, err
	}
	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := ownedBy(book.SeriesID, seriesID); err != nil {
		return nil, err
	}
	if err := checkVersion(version, book.Version); err != nil {
		return nil, err
	}
	patch.Apply(book)
	book.Normalize()
	if err := validate(book); err != nil {
		return nil, err
	}
	book.UpdatedAt = s.stamp()
	if err := s.repo.UpdateBook(ctx, book); err != nil {
		return nil, err
	}
	s.emit(KindBook, "updated", seriesID, bookID)
	return book, nil
}
