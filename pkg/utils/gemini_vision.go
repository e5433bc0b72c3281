package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiVisionClient implements VisionClientInterface with Gemini multimodal models.
type GeminiVisionClient struct {
	client *genai.Client
	model  string
}

func NewGeminiVisionClient(apiKey, model string) (*GeminiVisionClient, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiVisionClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiVisionClient) GenerateFromImage(
	ctx context.Context,
	prompt string,
	image []byte,
	mimeType string,
	opts GenerationOptions,
) (string, error) {
	m := c.client.GenerativeModel(c.model)
	if opts.JSONOnly {
		m.ResponseMIMEType = "application/json"
	}
	if opts.Temperature > 0 {
		m.SetTemperature(opts.Temperature)
	}
	if opts.MaxOutputTokens > 0 {
		m.SetMaxOutputTokens(opts.MaxOutputTokens)
	}

	resp, err := m.GenerateContent(ctx, genai.Text(prompt), genai.Blob{MIMEType: mimeType, Data: image})
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyModelResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", ErrEmptyModelResponse
	}
	return text.String(), nil
}

func (c *GeminiVisionClient) Close() error {
	return c.client.Close()
}
