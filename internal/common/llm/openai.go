package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAI streams from an OpenAI-compatible chat endpoint.
type OpenAI struct {
	client llms.Model
	model  string
}

// NewOpenAI builds a client for model. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, model string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return &OpenAI{client: client, model: model}, nil
}

func (o *OpenAI) Vendor() string { return VendorOpenAI }

func (o *OpenAI) Model() string { return o.model }

func (o *OpenAI) Stream(ctx context.Context, prompt string, onFragment func(string) error) error {
	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	var callbackErr error
	_, err := o.client.GenerateContent(ctx, content,
		llms.WithTemperature(0.2),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			if err := onFragment(string(chunk)); err != nil {
				callbackErr = err
				return err
			}
			return nil
		}),
	)
	if callbackErr != nil {
		return callbackErr
	}
	if err != nil {
		if looksRateLimited(err.Error()) {
			return fmt.Errorf("%w: openai: %v", ErrRateLimited, err)
		}
		return fmt.Errorf("openai: %w", err)
	}
	return nil
}
