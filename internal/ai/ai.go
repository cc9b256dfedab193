package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"social-auto-reply-go/internal/config"
)

// Client generates reply text for an inbound message. Implementations are
// external collaborators; callers must treat any error as "no insight" and
// degrade rather than fail.
type Client interface {
	GenerateReply(ctx context.Context, prompt string) (string, error)
}

// OpenAIClient implements Client using the OpenAI chat completion API
type OpenAIClient struct {
	client *openai.Client
	model  string
}

const systemPrompt = "You are a friendly social media and customer support assistant. " +
	"Write a short, helpful reply to the following message. Keep it under 80 words."

// NewOpenAIClient creates a new OpenAI-backed client. Returns nil when no
// API key is configured, which degrades enrichment to "no insight".
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	if cfg.APIKey == "" {
		return nil
	}
	return &OpenAIClient{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

// GenerateReply asks the completion API for a reply to the given message
func (c *OpenAIClient) GenerateReply(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
