package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyModelResponse = errors.New("model returned no text")

type GenerationOptions struct {
	Temperature     float32
	MaxOutputTokens int32
	// JSONOnly asks the provider to constrain the answer to JSON when it supports it.
	JSONOnly bool
}

// VisionClientInterface sends one prompt with one inline image and returns the text answer.
type VisionClientInterface interface {
	GenerateFromImage(ctx context.Context, prompt string, image []byte, mimeType string, opts GenerationOptions) (string, error)
	Close() error
}

// NewVisionClient picks the provider implementation.
func NewVisionClient(provider, apiKey, model string) (VisionClientInterface, error) {
	switch strings.ToLower(provider) {
	case "gemini", "":
		client, err := NewGeminiVisionClient(apiKey, model)
		if err != nil {
			return nil, err
		}
		return client, nil
	case "openai":
		return NewOpenAIVisionClient(apiKey, model), nil
	default:
		return nil, fmt.Errorf("unsupported vision provider: %s. Use 'gemini' or 'openai'", provider)
	}
}
