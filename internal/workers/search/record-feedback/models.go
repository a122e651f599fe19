// internal/workers/search/record-feedback/models.go
package recordfeedback

import (
	"context"
	"time"
)

const (
	VerdictPrefer = "prefer"
	VerdictAvoid  = "avoid"
)

// Input carries any combination of a click, an entity verdict and an
// answer rating.
type Input struct {
	URL     string `json:"url,omitempty"`
	Query   string `json:"query,omitempty"`
	Entity  string `json:"entity,omitempty"`
	Verdict string `json:"verdict,omitempty"`
	Helpful *bool  `json:"helpful,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type Output struct {
	Clicked    bool   `json:"clicked"`
	Verdict    string `json:"verdict,omitempty"`
	FeedbackID int64  `json:"feedbackId,omitempty"`
	MessageID  string `json:"messageId,omitempty"`
}

// Feedback is one stored answer rating.
type Feedback struct {
	ID        int64     `json:"id"`
	Query     string    `json:"query"`
	Helpful   bool      `json:"helpful"`
	Reason    string    `json:"reason,omitempty"`
	Entity    string    `json:"entity,omitempty"`
	Verdict   string    `json:"verdict,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Publisher interface {
	PublishJSON(ctx context.Context, eventType string, payload interface{}) (string, error)
}
