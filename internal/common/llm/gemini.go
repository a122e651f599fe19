package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// NewGeminiClient creates a Gemini API client. baseURL may be empty.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// Gemini streams from one Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(client *genai.Client, model string) *Gemini {
	return &Gemini{client: client, model: model}
}

func (g *Gemini) Vendor() string { return VendorGemini }

func (g *Gemini) Model() string { return g.model }

func (g *Gemini) Stream(ctx context.Context, prompt string, onFragment func(string) error) error {
	for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), nil) {
		if err != nil {
			return classifyGemini(err)
		}
		if resp == nil {
			continue
		}
		if text := resp.Text(); text != "" {
			if err := onFragment(text); err != nil {
				return err
			}
		}
	}
	return nil
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return fmt.Errorf("%w: gemini: %v", ErrRateLimited, err)
	}
	if looksRateLimited(err.Error()) {
		return fmt.Errorf("%w: gemini: %v", ErrRateLimited, err)
	}
	return fmt.Errorf("gemini: %w", err)
}
