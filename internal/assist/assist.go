// Package assist sends enhanced prompts to an OpenAI-compatible chat
// completion endpoint.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are a coding assistant. The user's request is followed by " +
	"context about their project and current editor state; use it when it is relevant."

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("no OpenAI API key configured (set OPENAI_API_KEY or openai.apiKey)")

// Settings configures a Client.
type Settings struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client asks a chat model.
type Client struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// New creates a client. It fails when no API key is set.
func New(s Settings, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}

	cfg := openai.DefaultConfig(s.APIKey)
	if s.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
	model := s.Model
	if model == "" {
		model = DefaultModel
	}

	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Ask sends prompt and returns the first reply.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("sending chat completion", zap.String("model", c.model), zap.Int("promptLength", len(prompt)))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	c.logger.Debug("chat completion finished", zap.String("finishReason", string(resp.Choices[0].FinishReason)))
	return resp.Choices[0].Message.Content, nil
}
