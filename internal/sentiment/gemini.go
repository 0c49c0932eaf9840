package sentiment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const (
	DefaultModel = "gemini-2.5-flash"

	statusResourceExhausted = "RESOURCE_EXHAUSTED"
)

// GeminiGenerator sends prompts to the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}

	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", classifyAPIError(err)
	}
	return resp.Text(), nil
}

// classifyAPIError wraps quota rejections with ErrRateLimited.
func classifyAPIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && isQuotaError(apiErr) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && isQuotaError(*apiErrPtr) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	return err
}

func isQuotaError(e genai.APIError) bool {
	return e.Code == http.StatusTooManyRequests || e.Status == statusResourceExhausted
}
