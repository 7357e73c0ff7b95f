// Package openai answers prompts with an OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"nextraction/internal/domain"
	"nextraction/internal/generation"
)

// Config configures the chat client.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Client implements domain.Generator over go-openai.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewClient fails with ErrGenerationUnavailable when the key env var is unset.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if !generation.KeyConfigured(key) {
		return nil, fmt.Errorf("%w: no api key in env %s", domain.ErrGenerationUnavailable, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	oc := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{client: openai.NewClientWithConfig(oc), model: cfg.Model, temperature: cfg.Temperature}, nil
}

func (c *Client) Name() string { return "openai-" + c.model }

// Generate sends the rendered prompt as a single user message.
func (c *Client) Generate(ctx context.Context, p domain.Prompt) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: generation.Render(p)},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: openai status %d: %s", domain.ErrGenerationFailed, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: openai chat: %v", domain.ErrGenerationUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: openai returned no choices", domain.ErrGenerationFailed)
	}
	return generation.NonEmpty("openai", resp.Choices[0].Message.Content)
}
