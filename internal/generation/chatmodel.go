package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/zulandar/leadyard/internal/config"
)

// ChatModelClient sends each prompt as a single user message to an eino
// chat model and returns the assistant's content.
type ChatModelClient struct {
	model   model.BaseChatModel
	timeout time.Duration
}

// NewChatModelClient wraps an existing chat model.
func NewChatModelClient(m model.BaseChatModel, timeout time.Duration) *ChatModelClient {
	return &ChatModelClient{model: m, timeout: timeout}
}

// NewOpenAIClient builds a ChatModelClient over an OpenAI-compatible API.
func NewOpenAIClient(ctx context.Context, cfg config.GenerationConfig) (*ChatModelClient, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		BaseURL: cfg.Endpoint,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: init openai chat model: %w", err)
	}
	return NewChatModelClient(cm, cfg.Timeout), nil
}

// Generate implements Client.
func (c *ChatModelClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := withTimeout(ctx, req, c.timeout)
	defer cancel()

	resp, err := c.model.Generate(ctx,
		[]*schema.Message{schema.UserMessage(req.Prompt)},
		model.WithTemperature(float32(req.Temperature)),
	)
	if err != nil {
		return "", fmt.Errorf("generation: chat model: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("generation: chat model returned no message")
	}
	return resp.Content, nil
}
