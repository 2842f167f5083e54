// Package generation implements application.GenerationClient over
// google.golang.org/genai: a thin text-in, text-out transport with no
// prompt engineering of its own. Callers feed the returned text to the
// llmextractor, which owns all parsing and validation.
package generation

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Client implements application.GenerationClient.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a generation Client against the Gemini API backend.
// model defaults to "gemini-2.5-flash-lite" when empty.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if model == "" {
		model = "gemini-2.5-flash-lite"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create generation client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// GenerateText sends prompt as a single user turn and returns the
// model's complete text response.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}

	response, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generation request failed (model %s): %w", c.model, err)
	}

	return response.Text(), nil
}
