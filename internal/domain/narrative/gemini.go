package narrative

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const promptTemplate = "You are a financial analyst reviewing one page of a business bank statement.\n" +
	"Summarize the cash flow on this page in a short paragraph: main income sources, " +
	"largest expenses, recurring payments and anything unusual. Answer in plain text.\n\n" +
	"Statement page:\n%s"

// GeminiAnalyzer calls the Gemini API.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates a client for the Gemini developer API.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

// Analyze sends one page and returns the model's text.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: fmt.Sprintf(promptTemplate, text)}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}
