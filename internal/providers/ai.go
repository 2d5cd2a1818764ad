package providers

import (
	"context"

	"github.com/thomas-vilte/aicommit/internal/ai"
	"github.com/thomas-vilte/aicommit/internal/ai/gemini"
	"github.com/thomas-vilte/aicommit/internal/ai/ollama"
	"github.com/thomas-vilte/aicommit/internal/ai/openai"
	"github.com/thomas-vilte/aicommit/internal/config"
	domainErrors "github.com/thomas-vilte/aicommit/internal/errors"
)

// NewTextGenerator creates the TextGenerator of the given provider. The
// credential is checked here so that a missing key fails before any git or
// network work.
func NewTextGenerator(ctx context.Context, cfg *config.Config, provider string) (ai.TextGenerator, error) {
	switch config.Provider(provider) {
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, domainErrors.ErrAPIKeyMissing.WithContext("env", config.EnvOpenAIAPIKey)
		}
		client, err := openai.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, domainErrors.ErrAPIKeyMissing.WithError(err)
		}
		return client, nil
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, domainErrors.ErrAPIKeyMissing.WithContext("env", config.EnvGeminiAPIKey)
		}
		client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, domainErrors.NewAppError(domainErrors.TypeAI, "error creating AI client", err)
		}
		return client, nil
	case config.ProviderOllama:
		return ollama.NewClient(cfg.OllamaEndpoint, nil), nil
	default:
		return nil, domainErrors.ErrUnsupportedProvider.WithContext("provider", provider)
	}
}
