// internal/workers/search/classify-intent/models.go
package classifyintent

import "wizkid-search/internal/models"

type Input struct {
	Query   string `json:"query"`
	Subject string `json:"subject,omitempty"`
}

type Output struct {
	Intent  models.Intent `json:"intent"`
	Subject string        `json:"subject"`
}
