package api

import (
	"github.com/starford/noteport/internal/models"
	"github.com/starford/noteport/internal/pageservice"
)

// PageDetail is the full page response type (aliased from the domain layer).
type PageDetail = pageservice.PageDetail

// NotebookListResponse wraps the notebook listing.
type NotebookListResponse struct {
	Notebooks []models.Notebook `json:"notebooks" validate:"required"`
}

// PageListResponse wraps paginated page listings.
type PageListResponse struct {
	Pages []models.Page `json:"pages" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []models.Page `json:"results" validate:"required"`
}
