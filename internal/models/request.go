// internal/models/request.go
package models

import "strings"

// Intent is the classified purpose of a query.
type Intent string

const (
	IntentPeople  Intent = "people"
	IntentCompany Intent = "company"
	IntentLocal   Intent = "local"
	IntentGeneral Intent = "general"
)

// Style selects the register of the synthesized answer.
type Style string

const (
	StyleSimple Style = "simple"
	StyleExpert Style = "expert"
)

// Coords is a WGS84 position.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// AskRequest is one user question.
type AskRequest struct {
	Query    string  `json:"query"`
	Subject  string  `json:"subject,omitempty"`
	Style    Style   `json:"style,omitempty"`
	Provider string  `json:"provider,omitempty"`
	Coords   *Coords `json:"coords,omitempty"`
	Radius   int     `json:"radius,omitempty"`
	// ClientIP is filled by the transport for approximate location lookup.
	ClientIP string `json:"-"`
}

// Trimmed returns the query without surrounding whitespace.
func (r *AskRequest) Trimmed() string {
	return strings.TrimSpace(r.Query)
}

// EffectiveStyle defaults to simple.
func (r *AskRequest) EffectiveStyle() Style {
	if r.Style == StyleExpert {
		return StyleExpert
	}
	return StyleSimple
}
