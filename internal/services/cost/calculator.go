package cost

import (
	"math"
	"strings"
)

// Rate is the price in USD of 1,000 tokens.
type Rate struct {
	InputPer1K  float64 `toml:"input_per_1k"`
	OutputPer1K float64 `toml:"output_per_1k"`
}

type ProviderPricing map[string]map[string]Rate

// DefaultRate is applied to models the table does not know (gpt-3.5-turbo).
var DefaultRate = Rate{InputPer1K: 0.0015, OutputPer1K: 0.002}

// freeProviders run locally and never bill.
var freeProviders = map[string]bool{
	"ollama": true,
}

// https://openai.com/api/pricing
// https://ai.google.dev/gemini-api/docs/pricing
func defaultPricing() ProviderPricing {
	return ProviderPricing{
		"openai": {
			"gpt-3.5-turbo": {InputPer1K: 0.0015, OutputPer1K: 0.002},
			"gpt-4":         {InputPer1K: 0.03, OutputPer1K: 0.06},
			"gpt-4-turbo":   {InputPer1K: 0.01, OutputPer1K: 0.03},
			"gpt-4o":        {InputPer1K: 0.0025, OutputPer1K: 0.01},
			"gpt-4o-mini":   {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		},
		"gemini": {
			"gemini-1.5-flash":       {InputPer1K: 0.000075, OutputPer1K: 0.0003},
			"gemini-1.5-pro":         {InputPer1K: 0.00125, OutputPer1K: 0.005},
			"gemini-2.5-flash":       {InputPer1K: 0.0001, OutputPer1K: 0.0004},
			"gemini-3-flash-preview": {InputPer1K: 0.0005, OutputPer1K: 0.003},
			"gemini-3-pro-preview":   {InputPer1K: 0.002, OutputPer1K: 0.012},
		},
	}
}

type Calculator struct {
	pricing   ProviderPricing
	overrides map[string]Rate
	fallback  Rate
}

type Option func(*Calculator)

// WithModelRates sets per-model rates that win over the built-in table,
// whatever the provider.
func WithModelRates(rates map[string]Rate) Option {
	return func(c *Calculator) {
		for model, rate := range rates {
			c.overrides[strings.ToLower(model)] = rate
		}
	}
}

// WithDefaultRate replaces the rate used for unknown models.
func WithDefaultRate(rate Rate) Option {
	return func(c *Calculator) {
		c.fallback = rate
	}
}

func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		pricing:   defaultPricing(),
		overrides: make(map[string]Rate),
		fallback:  DefaultRate,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Rate resolves the rate for a model: configured override, exact table
// entry, longest table entry contained in the model id (dated snapshots such
// as gpt-4o-mini-2024-07-18), then the default rate.
func (c *Calculator) Rate(provider, model string) Rate {
	provider = strings.ToLower(provider)
	model = strings.ToLower(model)

	if freeProviders[provider] {
		return Rate{}
	}

	if rate, ok := c.overrides[model]; ok {
		return rate
	}

	providerPricing := c.pricing[provider]
	if providerPricing == nil {
		for _, models := range c.pricing {
			if rate, ok := models[model]; ok {
				return rate
			}
		}
		return c.fallback
	}

	if rate, ok := providerPricing[model]; ok {
		return rate
	}

	best := ""
	for name := range providerPricing {
		if strings.Contains(model, name) && len(name) > len(best) {
			best = name
		}
	}
	if best != "" {
		return providerPricing[best]
	}

	return c.fallback
}

// EstimateCost returns the price of a call rounded to six decimals.
func (c *Calculator) EstimateCost(provider, model string, inputTokens, outputTokens int) float64 {
	rate := c.Rate(provider, model)
	inputCost := (float64(inputTokens) / 1000) * rate.InputPer1K
	outputCost := (float64(outputTokens) / 1000) * rate.OutputPer1K
	return RoundUSD(inputCost + outputCost)
}

// RoundUSD rounds an amount to six decimal places.
func RoundUSD(amount float64) float64 {
	return math.Round(amount*1e6) / 1e6
}
