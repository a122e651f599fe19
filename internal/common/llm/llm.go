// Package llm adapts streaming text generation vendors to one interface.
package llm

import (
	"context"
	"errors"
	"strings"
)

// Vendor names used in configuration and on requests.
const (
	VendorGemini = "gemini"
	VendorOpenAI = "openai"
)

// ErrRateLimited marks a quota or rate-limit failure. Callers skip the rest
// of the vendor's models when they see it.
var ErrRateLimited = errors.New("PROVIDER_RATE_LIMITED")

// Provider streams one completion. onFragment is called with each text
// fragment in order; a non-nil return aborts the stream with that error.
type Provider interface {
	Vendor() string
	Model() string
	Stream(ctx context.Context, prompt string, onFragment func(string) error) error
}

// looksRateLimited matches vendor error text that signals quota exhaustion.
func looksRateLimited(msg string) bool {
	msg = strings.ToLower(msg)
	for _, marker := range []string{"429", "rate limit", "rate_limit", "quota", "resource_exhausted", "too many requests"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
