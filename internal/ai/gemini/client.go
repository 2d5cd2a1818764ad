package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/thomas-vilte/aicommit/internal/ai"
	"github.com/thomas-vilte/aicommit/internal/models"
	"google.golang.org/api/option"
)

const ProviderName = "gemini"

var ErrEmptyResponse = errors.New("gemini returned no text")

type Client struct {
	client *genai.Client
}

func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini API key is empty")
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client}, nil
}

func (c *Client) ProviderName() string {
	return ProviderName
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Generate(ctx context.Context, req ai.GenerationRequest) (ai.GenerationResponse, error) {
	model := c.client.GenerativeModel(req.Model)
	configureModel(model, req)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return ai.GenerationResponse{}, fmt.Errorf("gemini: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return ai.GenerationResponse{}, ErrEmptyResponse
	}

	usage := extractUsage(resp)
	usage.Model = req.Model
	return ai.GenerationResponse{Text: text, Usage: usage}, nil
}

func configureModel(model *genai.GenerativeModel, req ai.GenerationRequest) {
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	model.SetCandidateCount(1)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
}

// extractText joins the text parts of the first candidate that has any.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

func extractUsage(resp *genai.GenerateContentResponse) models.TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return models.TokenUsage{}
	}
	return models.NewTokenUsage(
		int(resp.UsageMetadata.PromptTokenCount),
		int(resp.UsageMetadata.CandidatesTokenCount),
	)
}
