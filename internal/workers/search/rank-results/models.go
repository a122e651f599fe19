// internal/workers/search/rank-results/models.go
package rankresults

import "wizkid-search/internal/models"

type Input struct {
	Query      string             `json:"query"`
	Candidates []models.Candidate `json:"candidates,omitempty"`
	Citations  []models.Citation  `json:"citations,omitempty"`
}

type Output struct {
	Candidates []models.Candidate `json:"candidates"`
	Citations  []models.Citation  `json:"citations"`
}
