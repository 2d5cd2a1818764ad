// Package openai generates text with the OpenAI chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/thomas-vilte/aicommit/internal/ai"
	"github.com/thomas-vilte/aicommit/internal/models"
)

const ProviderName = "openai"

var ErrEmptyResponse = errors.New("openai returned no choices")

type Client struct {
	client *goopenai.Client
}

type Option func(*goopenai.ClientConfig)

// WithBaseURL points the client at a compatible API (proxies, test servers).
func WithBaseURL(url string) Option {
	return func(c *goopenai.ClientConfig) {
		c.BaseURL = strings.TrimRight(url, "/")
	}
}

func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai API key is empty")
	}
	cfg := goopenai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{client: goopenai.NewClientWithConfig(cfg)}, nil
}

func (c *Client) ProviderName() string {
	return ProviderName
}

func (c *Client) Generate(ctx context.Context, req ai.GenerationRequest) (ai.GenerationResponse, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: requestTemperature(req.Temperature),
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return ai.GenerationResponse{}, fmt.Errorf("openai: HTTP %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
		}
		return ai.GenerationResponse{}, fmt.Errorf("openai: %w", err)
	}

	if len(resp.Choices) == 0 {
		return ai.GenerationResponse{}, ErrEmptyResponse
	}

	usage := models.NewTokenUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	usage.Model = resp.Model
	if usage.Model == "" {
		usage.Model = req.Model
	}

	return ai.GenerationResponse{
		Text:  resp.Choices[0].Message.Content,
		Usage: usage,
	}, nil
}

// requestTemperature keeps a zero temperature on the wire: the library drops
// zero values, which the API would read as its default of 1.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}
