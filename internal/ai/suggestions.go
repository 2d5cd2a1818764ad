package ai

import (
	"context"
	"time"

	"github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/logger"
	"github.com/thomas-vilte/aicommit/internal/models"
)

const (
	DefaultMaxTokens   = 200
	DefaultTemperature = 0
)

// SuggestionGenerator turns a staged diff into commit message candidates
// with a single call to a TextGenerator.
type SuggestionGenerator struct {
	generator   TextGenerator
	language    string
	temperature float32
	maxTokens   int
}

type SuggestionOption func(*SuggestionGenerator)

func WithLanguage(lang string) SuggestionOption {
	return func(g *SuggestionGenerator) {
		g.language = lang
	}
}

func WithTemperature(temperature float32) SuggestionOption {
	return func(g *SuggestionGenerator) {
		g.temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) SuggestionOption {
	return func(g *SuggestionGenerator) {
		if maxTokens > 0 {
			g.maxTokens = maxTokens
		}
	}
}

func NewSuggestionGenerator(generator TextGenerator, opts ...SuggestionOption) *SuggestionGenerator {
	g := &SuggestionGenerator{
		generator:   generator,
		language:    "en",
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateSuggestions never fails outright. When the service errors or its
// reply holds no usable line, the result has no messages, zero tokens and
// Cause set to the reason.
func (g *SuggestionGenerator) GenerateSuggestions(ctx context.Context, req models.SuggestionRequest) models.SuggestionResult {
	log := logger.FromContext(ctx)

	if req.Count <= 0 {
		return models.SuggestionResult{Messages: []string{}, Cause: errors.ErrInvalidSuggestionCount}
	}

	prompt, err := BuildCommitPrompt(g.language, req.Count, req.Diff, req.Files)
	if err != nil {
		log.Error("failed to render prompt", "error", err)
		return models.SuggestionResult{Messages: []string{}, Cause: err}
	}

	log.Debug("requesting suggestions",
		"provider", g.generator.ProviderName(),
		"model", req.Model,
		"count", req.Count,
		"size", len(prompt))

	start := time.Now()
	resp, err := g.generator.Generate(ctx, GenerationRequest{
		System:      GetSystemInstruction(g.language),
		Prompt:      prompt,
		Model:       req.Model,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		log.Warn("generation failed",
			"provider", g.generator.ProviderName(),
			"model", req.Model,
			"error", err)
		return models.SuggestionResult{Messages: []string{}, Cause: err}
	}

	messages := ParseSuggestions(resp.Text, req.Count)
	if len(messages) == 0 {
		log.Warn("model reply contained no usable suggestion", "model", req.Model)
		return models.SuggestionResult{Messages: []string{}, Cause: errors.ErrGenerationFailure}
	}

	usage := resp.Usage
	if usage.DurationMs == 0 {
		usage.DurationMs = time.Since(start).Milliseconds()
	}

	log.Info("suggestions generated",
		"count", len(messages),
		"tokens_input", usage.InputTokens,
		"tokens_output", usage.OutputTokens,
		"duration_ms", usage.DurationMs)

	return models.SuggestionResult{Messages: messages, Usage: usage}
}
