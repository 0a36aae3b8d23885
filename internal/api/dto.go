package api

import (
	"github.com/starford/saga/internal/models"
)

// SeriesListResponse wraps series listings.
type SeriesListResponse struct {
	Series []models.Series `json:"series" validate:"required"`
}

// CharacterUpdateRequest is the request body for updating a character.
// Override is required when the patch touches a locked attribute.
type CharacterUpdateRequest struct {
	models.CharacterPatch
	Override *models.OverrideRequest `json:"override,omitempty"`
}

// DeactivateRequest is the request body for deactivating a world element.
type DeactivateRequest struct {
	Override *models.OverrideRequest `json:"override,omitempty"`
}

// TransitionRequest is the request body for moving an arc to a new status.
type TransitionRequest struct {
	Status models.ArcStatus `json:"status" example:"rising" validate:"required"`
}

// CompletionRequest is the request body for setting arc completion.
type CompletionRequest struct {
	CompletionPercentage int `json:"completion_percentage" example:"40" validate:"required"`
}

// EvaluateRequest is the request body for a canon check.
type EvaluateRequest struct {
	Book int    `json:"book" example:"3" validate:"required"`
	Text string `json:"text" validate:"required"`
}

// ReviewRequest is the request body for reviewing generated content.
type ReviewRequest struct {
	Book            int                    `json:"book" example:"3" validate:"required"`
	Text            string                 `json:"text" validate:"required"`
	Acknowledgement models.Acknowledgement `json:"acknowledgement"`
}

// SearchResponse is the response for GET /api/series/{seriesID}/search.
type SearchResponse struct {
	Results []models.SearchHit `json:"results"`
}
