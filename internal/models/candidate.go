// internal/models/candidate.go
package models

// Links are official profile links published by a knowledge graph.
type Links struct {
	Website   string `json:"website,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	X         string `json:"x,omitempty"`
	Wiki      string `json:"wiki,omitempty"`
}

// NamedLink is one entry of Links with its display label.
type NamedLink struct {
	Label string
	URL   string
}

// Ordered returns the non-empty links in citation order:
// website, LinkedIn, Instagram, Facebook, X, encyclopedia page.
func (l Links) Ordered() []NamedLink {
	all := []NamedLink{
		{"Official website", l.Website},
		{"LinkedIn", l.LinkedIn},
		{"Instagram", l.Instagram},
		{"Facebook", l.Facebook},
		{"X (Twitter)", l.X},
		{"Wikipedia", l.Wiki},
	}
	out := make([]NamedLink, 0, len(all))
	for _, nl := range all {
		if nl.URL != "" {
			out = append(out, nl)
		}
	}
	return out
}

// SocialWeight scores presence on social networks.
func (l Links) SocialWeight() int {
	w := 0
	if l.LinkedIn != "" {
		w += 3
	}
	if l.Instagram != "" {
		w += 2
	}
	if l.Facebook != "" {
		w += 1
	}
	if l.X != "" {
		w += 2
	}
	return w
}

// Merge fills empty fields of l from other.
func (l Links) Merge(other Links) Links {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return Links{
		Website:   pick(l.Website, other.Website),
		LinkedIn:  pick(l.LinkedIn, other.LinkedIn),
		Instagram: pick(l.Instagram, other.Instagram),
		Facebook:  pick(l.Facebook, other.Facebook),
		X:         pick(l.X, other.X),
		Wiki:      pick(l.Wiki, other.Wiki),
	}
}

// Candidate is one entity that may be what the user meant.
type Candidate struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Extract     string  `json:"extract,omitempty"`
	Image       string  `json:"image,omitempty"`
	URL         string  `json:"url,omitempty"`
	Links       Links   `json:"links"`
	Source      string  `json:"source,omitempty"`
	Fame        float64 `json:"fame"`
	Similarity  float64 `json:"similarity"`
	Score       float64 `json:"score"`
}

// Bias holds learned per-query entity preferences keyed by candidate name.
type Bias struct {
	Prefer map[string]float64 `json:"prefer"`
	Avoid  map[string]float64 `json:"avoid"`
}

// NewBias returns an empty bias.
func NewBias() Bias {
	return Bias{Prefer: map[string]float64{}, Avoid: map[string]float64{}}
}

// Weights returns the prefer and avoid weights for a name, zero if absent.
func (b Bias) Weights(name string) (prefer, avoid float64) {
	return b.Prefer[name], b.Avoid[name]
}
