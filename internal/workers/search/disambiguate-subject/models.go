// internal/workers/search/disambiguate-subject/models.go
package disambiguatesubject

import (
	"context"

	"wizkid-search/internal/common/opengraph"
	"wizkid-search/internal/common/wikipedia"
	"wizkid-search/internal/models"
)

type Input struct {
	Subject string `json:"subject"`
}

// Output holds the confident match, if any, and the other candidates.
type Output struct {
	Primary    *models.Candidate  `json:"primary"`
	Alternates []models.Candidate `json:"alternates"`
}

// Encyclopedia is the Wikipedia client surface used here.
type Encyclopedia interface {
	Search(ctx context.Context, query string, limit int) ([]wikipedia.SearchHit, error)
	Summary(ctx context.Context, title string) (*wikipedia.Summary, error)
	Pageviews(ctx context.Context, title string, days int) (int, error)
}

type KnowledgeGraph interface {
	OfficialLinks(ctx context.Context, name string) (models.Links, error)
}

type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

type PreviewFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*opengraph.Meta, error)
}
