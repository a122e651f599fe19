// internal/workers/search/aggregate-sources/models.go
package aggregatesources

import (
	"context"

	"wizkid-search/internal/common/wikipedia"
	"wizkid-search/internal/models"
)

type Input struct {
	Subject string        `json:"subject"`
	Intent  models.Intent `json:"intent"`
	// Links are the official links of a resolved entity. When nil and the
	// intent is company, they are looked up.
	Links *models.Links `json:"links,omitempty"`
}

type Output struct {
	Citations []models.Citation `json:"citations"`
}

type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

type KnowledgeGraph interface {
	OfficialLinks(ctx context.Context, name string) (models.Links, error)
}

type Encyclopedia interface {
	Summary(ctx context.Context, title string) (*wikipedia.Summary, error)
}
