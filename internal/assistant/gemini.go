package assistant

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini completes conversations with the Gemini developer API.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Complete(ctx context.Context, system string, turns []Turn) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents(turns), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return resp.Text(), nil
}

func contents(turns []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))

	for _, t := range turns {
		out = append(out, &genai.Content{
			Role:  t.Role,
			Parts: []*genai.Part{{Text: t.Text}},
		})
	}

	return out
}
