// internal/models/event.go
package models

import "encoding/json"

// EventType labels one message of an answer stream.
type EventType string

const (
	EventStatus     EventType = "status"
	EventCandidates EventType = "candidates"
	EventProfile    EventType = "profile"
	EventPlaces     EventType = "places"
	EventCite       EventType = "cite"
	EventToken      EventType = "token"
	EventRelated    EventType = "related"
	EventError      EventType = "error"
	EventFinal      EventType = "final"
)

// Confidence is derived from the number of citations in the final answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ConfidenceFor maps a citation count to a confidence level.
func ConfidenceFor(citations int) Confidence {
	switch {
	case citations >= 3:
		return ConfidenceHigh
	case citations >= 1:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Related is a suggested follow-up question.
type Related struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// Snapshot is the terminal state of an answer.
type Snapshot struct {
	ID         string     `json:"id"`
	Markdown   string     `json:"markdown"`
	Cites      []Citation `json:"cites"`
	Confidence Confidence `json:"confidence"`
}

// Event is one message of the answer stream. Only the payload field that
// matches Type is meaningful.
type Event struct {
	Type       EventType
	Msg        string
	Candidates []Candidate
	Profile    *Candidate
	Places     []Place
	Cite       *Citation
	Text       string
	Related    []Related
	Snapshot   *Snapshot
}

func StatusEvent(msg string) Event { return Event{Type: EventStatus, Msg: msg} }

func ErrorEvent(msg string) Event { return Event{Type: EventError, Msg: msg} }

func TokenEvent(text string) Event { return Event{Type: EventToken, Text: text} }

func CiteEvent(c Citation) Event { return Event{Type: EventCite, Cite: &c} }

func CandidatesEvent(c []Candidate) Event { return Event{Type: EventCandidates, Candidates: c} }

func ProfileEvent(c Candidate) Event { return Event{Type: EventProfile, Profile: &c} }

func PlacesEvent(p []Place) Event { return Event{Type: EventPlaces, Places: p} }

func RelatedEvent(items []Related) Event { return Event{Type: EventRelated, Related: items} }

func FinalEvent(s Snapshot) Event { return Event{Type: EventFinal, Snapshot: &s} }

type wireEvent struct {
	Event      EventType   `json:"event"`
	Msg        string      `json:"msg,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
	Profile    *Candidate  `json:"profile,omitempty"`
	Places     []Place     `json:"places,omitempty"`
	Cite       *Citation   `json:"cite,omitempty"`
	Text       string      `json:"text,omitempty"`
	Items      []Related   `json:"items,omitempty"`
	Snapshot   *Snapshot   `json:"snapshot,omitempty"`
}

// MarshalJSON writes {"event": type, <payload key>: value}. Empty lists are
// written as [] so clients can rely on the key.
func (e Event) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{"event": e.Type}
	switch e.Type {
	case EventStatus, EventError:
		out["msg"] = e.Msg
	case EventCandidates:
		out["candidates"] = nonNil(e.Candidates)
	case EventProfile:
		out["profile"] = e.Profile
	case EventPlaces:
		out["places"] = nonNil(e.Places)
	case EventCite:
		out["cite"] = e.Cite
	case EventToken:
		out["text"] = e.Text
	case EventRelated:
		out["items"] = nonNil(e.Related)
	case EventFinal:
		snap := e.Snapshot
		if snap != nil && snap.Cites == nil {
			cp := *snap
			cp.Cites = []Citation{}
			snap = &cp
		}
		out["snapshot"] = snap
	}
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*e = Event{
		Type:       w.Event,
		Msg:        w.Msg,
		Candidates: w.Candidates,
		Profile:    w.Profile,
		Places:     w.Places,
		Cite:       w.Cite,
		Text:       w.Text,
		Related:    w.Items,
		Snapshot:   w.Snapshot,
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
