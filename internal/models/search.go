package models

// SearchHit is one entity matched by a full-text search within a series.
type SearchHit struct {
	Kind     string `json:"kind"`
	EntityID string `json:"entity_id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
}
