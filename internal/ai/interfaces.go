package ai

import (
	"context"

	"github.com/thomas-vilte/aicommit/internal/models"
)

// GenerationRequest is a single request to a text generation service.
type GenerationRequest struct {
	System      string
	Prompt      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// GenerationResponse carries the generated text and the tokens it cost.
type GenerationResponse struct {
	Text  string
	Usage models.TokenUsage
}

// TextGenerator is implemented by every provider client (OpenAI, Gemini,
// Ollama). One call is one network exchange; implementations do not retry.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error)

	// ProviderName returns the name of the provider (e.g.: "openai", "gemini", "ollama")
	ProviderName() string
}
