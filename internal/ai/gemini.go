package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiCompleter implements Completer using the official Google GenAI SDK.
type GeminiCompleter struct {
	modelName string
	client    *genai.Client
}

// NewGeminiCompleter creates a Gemini-backed completer for the given model.
func NewGeminiCompleter(ctx context.Context, apiKey, modelName string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiCompleter{
		modelName: modelName,
		client:    client,
	}, nil
}

// Complete asks the model for a single text answer.
func (c *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), nil)
	if err != nil {
		return "", categorize(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}
	return collectText(resp.Candidates[0].Content), nil
}

func collectText(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func categorize(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		case 401, 403:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		case 404:
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
	}

	return fmt.Errorf("gemini completion: %w", err)
}
