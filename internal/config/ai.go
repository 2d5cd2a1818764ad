package config

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderOllama Provider = "ollama"
)

type Model string

const (
	ModelGPT35Turbo Model = "gpt-3.5-turbo"
	ModelGPTV4o     Model = "gpt-4o"
	ModelGPTV4oMini Model = "gpt-4o-mini"
	ModelGPTV4Turbo Model = "gpt-4-turbo"

	ModelGeminiV25Flash Model = "gemini-2.5-flash"
	ModelGeminiV15Flash Model = "gemini-1.5-flash"
	ModelGeminiV15Pro   Model = "gemini-1.5-pro"

	ModelLlama3   Model = "llama3"
	ModelMistral  Model = "mistral"
	ModelQwenCode Model = "qwen2.5-coder"
)

func SupportedProviders() []Provider {
	return []Provider{
		ProviderOpenAI,
		ProviderGemini,
		ProviderOllama,
	}
}

func IsSupportedProvider(name string) bool {
	for _, p := range SupportedProviders() {
		if string(p) == name {
			return true
		}
	}
	return false
}

// ModelsForProvider lists the well-known models of a provider, default first.
// Any other model id is still accepted and passed through as is.
func ModelsForProvider(provider Provider) []Model {
	switch provider {
	case ProviderOpenAI:
		return []Model{
			ModelGPT35Turbo,
			ModelGPTV4oMini,
			ModelGPTV4o,
			ModelGPTV4Turbo,
		}
	case ProviderGemini:
		return []Model{
			ModelGeminiV25Flash,
			ModelGeminiV15Flash,
			ModelGeminiV15Pro,
		}
	case ProviderOllama:
		return []Model{
			ModelLlama3,
			ModelMistral,
			ModelQwenCode,
		}
	default:
		return []Model{}
	}
}

func DefaultModelForProvider(provider Provider) Model {
	models := ModelsForProvider(provider)
	if len(models) == 0 {
		return ""
	}
	return models[0]
}
