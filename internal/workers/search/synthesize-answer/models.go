// internal/workers/search/synthesize-answer/models.go
package synthesizeanswer

import "wizkid-search/internal/models"

type Input struct {
	Question  string            `json:"question"`
	Subject   string            `json:"subject,omitempty"`
	Intent    models.Intent     `json:"intent"`
	Style     models.Style      `json:"style,omitempty"`
	Provider  string            `json:"provider,omitempty"`
	Citations []models.Citation `json:"citations"`
}

// Topic is the subject when known, else the question.
func (in *Input) Topic() string {
	if in.Subject != "" {
		return in.Subject
	}
	return in.Question
}

type Output struct {
	Answer string `json:"answer"`
}
