package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIVisionClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIVisionClient(apiKey, model string) *OpenAIVisionClient {
	if model == "" || strings.HasPrefix(model, "gemini") {
		model = openai.GPT4oMini
	}
	return &OpenAIVisionClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *OpenAIVisionClient) GenerateFromImage(
	ctx context.Context,
	prompt string,
	image []byte,
	mimeType string,
	opts GenerationOptions,
) (string, error) {
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: opts.Temperature,
		MaxTokens:   int(opts.MaxOutputTokens),
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}},
	}
	if opts.JSONOnly {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyModelResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIVisionClient) Close() error { return nil }
