// internal/workers/search/answer-query/models.go
package answerquery

import (
	"context"
	"iter"

	"wizkid-search/internal/models"
	aggregatesources "wizkid-search/internal/workers/search/aggregate-sources"
	disambiguatesubject "wizkid-search/internal/workers/search/disambiguate-subject"
	findnearbyplaces "wizkid-search/internal/workers/search/find-nearby-places"
	synthesizeanswer "wizkid-search/internal/workers/search/synthesize-answer"
)

// Input is the job form of an ask request.
type Input struct {
	Query    string         `json:"query"`
	Subject  string         `json:"subject,omitempty"`
	Style    models.Style   `json:"style,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Coords   *models.Coords `json:"coords,omitempty"`
	Radius   int            `json:"radius,omitempty"`
	ClientIP string         `json:"clientIp,omitempty"`
}

func (in *Input) Request() *models.AskRequest {
	return &models.AskRequest{
		Query:    in.Query,
		Subject:  in.Subject,
		Style:    in.Style,
		Provider: in.Provider,
		Coords:   in.Coords,
		Radius:   in.Radius,
		ClientIP: in.ClientIP,
	}
}

type Output struct {
	Intent   models.Intent   `json:"intent"`
	Snapshot models.Snapshot `json:"snapshot"`
	Events   []models.Event  `json:"events"`
}

type Disambiguator interface {
	Disambiguate(ctx context.Context, subject string) (*disambiguatesubject.Output, error)
}

type Aggregator interface {
	Aggregate(ctx context.Context, input *aggregatesources.Input) ([]models.Citation, error)
}

type Ranker interface {
	LoadBias(ctx context.Context, query string) models.Bias
	RankCitations(ctx context.Context, cites []models.Citation) []models.Citation
	RecordShown(cite models.Citation)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, input *synthesizeanswer.Input) iter.Seq[string]
}

type PlaceFinder interface {
	FindNearby(ctx context.Context, input *findnearbyplaces.Input) (*findnearbyplaces.Output, error)
}

// Stages are the collaborators of the answer pipeline.
type Stages struct {
	Disambiguator Disambiguator
	Aggregator    Aggregator
	Ranker        Ranker
	Synthesizer   Synthesizer
	Places        PlaceFinder
}
