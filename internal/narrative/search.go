package narrative

import (
	"context"
	"strings"

	"github.com/starford/saga/internal/apperr"
	"github.com/starford/saga/internal/models"
)

// SearchSeries finds the entities of a series whose name or descriptive
// text matches query.
func (s *Service) SearchSeries(ctx context.Context, seriesID, query string, limit int) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.NewValidationError("q", "cannot be blank")
	}
	if err := s.requireSeries(ctx, seriesID); err != nil {
		return nil, err
	}
	return s.repo.Search(ctx, seriesID, query, limit)
}
