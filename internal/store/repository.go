package store

import (
	"context"

	"github.com/starford/saga/internal/models"
)

// Repository defines the entity-store operations the narrative service
// needs. Consumers should depend on this interface rather than the
// concrete *DB type to facilitate testing with fakes.
type Repository interface {
	CreateSeries(ctx context.Context, s *models.Series) error
	GetSeries(ctx context.Context, id string) (*models.Series, error)
	ListSeries(ctx context.Context, authorID string) ([]models.Series, error)
	UpdateSeries(ctx context.Context, s *models.Series) error

	CreateBook(ctx context.Context, b *models.Book) error
	GetBook(ctx context.Context, id string) (*models.Book, error)
	ListBooks(ctx context.Context, seriesID string) ([]models.Book, error)
	UpdateBook(ctx context.Context, b *models.Book) error

	CreateCharacter(ctx context.Context, c *models.Character) error
	GetCharacter(ctx context.Context, id string) (*models.Character, error)
	ListCharacters(ctx context.Context, seriesID string) ([]models.Character, error)
	UpdateCharacter(ctx context.Context, c *models.Character) error

	CreateWorldElement(ctx context.Context, w *models.WorldElement) error
	GetWorldElement(ctx context.Context, id string) (*models.WorldElement, error)
	ListWorldElements(ctx context.Context, seriesID string) ([]models.WorldElement, error)
	UpdateWorldElement(ctx context.Context, w *models.WorldElement) error

	CreateArc(ctx context.Context, a *models.NarrativeArc) error
	GetArc(ctx context.Context, id string) (*models.NarrativeArc, error)
	ListArcs(ctx context.Context, seriesID string) ([]models.NarrativeArc, error)
	UpdateArc(ctx context.Context, a *models.NarrativeArc) error

	CreateRule(ctx context.Context, r *models.CanonRule) error
	GetRule(ctx context.Context, id string) (*models.CanonRule, error)
	ListRules(ctx context.Context, seriesID string) ([]models.CanonRule, error)

	RecordOverrides(ctx context.Context, overrides []models.Override) error
	ListOverrides(ctx context.Context, seriesID string) ([]models.Override, error)

	Snapshot(ctx context.Context, seriesID string) (*models.SeriesSnapshot, error)
	Search(ctx context.Context, seriesID, query string, limit int) ([]models.SearchHit, error)
}

// Verify *DB satisfies Repository at compile time.
var _ Repository = (*DB)(nil)
