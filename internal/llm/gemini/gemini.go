package gemini

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"lawrag/internal/domain"
)

// Client generates completions with Gemini. The genai client reads its API
// key from the GEMINI_API_KEY environment variable.
type Client struct {
	client *genai.Client
	model  string
}

func NewClient(ctx context.Context, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{client: client, model: model}, nil
}

// Name returns the model identity of this generator.
func (c *Client) Name() string { return c.model }

// Generate sends the prompt as a single user turn and returns the first
// candidate's text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: model %s", domain.ErrGenerationTimeout, c.model)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned", domain.ErrGenerationUnavailable)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty candidate content", domain.ErrGenerationUnavailable)
	}
	return candidate.Content.Parts[0].Text, nil
}
