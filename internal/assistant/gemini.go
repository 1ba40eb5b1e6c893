package assistant

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// NewGeminiResponder creates a responder backed by the Gemini API. An empty
// apiKey lets the SDK read GOOGLE_API_KEY or Vertex settings from the
// environment.
func NewGeminiResponder(ctx context.Context, apiKey, model string, log zerolog.Logger) (Responder, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiResponder: create genai client: %w", err)
	}

	generate := func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			return "", fmt.Errorf("gemini: generate content: %w", err)
		}
		return resp.Text(), nil
	}
	return &modelResponder{name: "gemini", generate: generate, log: log}, nil
}
