package gateway

import (
	"encoding/json"

	"github.com/openpecha/catalog/internal/index"
	"github.com/openpecha/catalog/internal/models"
)

// CreateTextBody documents the POST /text payload. The handler forwards the
// raw body, so fields beyond these survive.
type CreateTextBody struct {
	Type          models.TextType       `json:"type" example:"root" validate:"required"`
	Title         models.Localized      `json:"title" validate:"required"`
	Language      string                `json:"language" example:"bo" validate:"required"`
	Parent        string                `json:"parent,omitempty"`
	Contributions []models.Contribution `json:"contributions,omitempty"`
	Date          string                `json:"date,omitempty"`
	BDRC          string                `json:"bdrc,omitempty"`
	Wiki          string                `json:"wiki,omitempty"`
	AltTitles     []models.Localized    `json:"alt_titles,omitempty"`
}

// CreateInstanceBody documents the POST /text/{id}/instances payload.
type CreateInstanceBody struct {
	Metadata    models.InstanceMetadata `json:"metadata"`
	Content     string                  `json:"content" validate:"required"`
	Annotations models.Annotations      `json:"annotations,omitempty"`
}

// CreatePersonBody documents the POST /person payload.
type CreatePersonBody struct {
	Name     models.Localized   `json:"name" validate:"required"`
	AltNames []models.Localized `json:"alt_names,omitempty"`
	BDRC     string             `json:"bdrc,omitempty"`
	Wiki     string             `json:"wiki,omitempty"`
}

// TextPage is the GET /text response.
type TextPage = models.Page[json.RawMessage]

// PersonPage is the GET /person response.
type PersonPage = models.Page[json.RawMessage]

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
