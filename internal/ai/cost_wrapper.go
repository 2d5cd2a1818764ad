package ai

import (
	"context"
	"time"

	"github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/logger"
	"github.com/thomas-vilte/aicommit/internal/services/cost"
)

// UsageLedger is the part of cost.Manager the wrapper needs.
type UsageLedger interface {
	CheckBudget(ctx context.Context, estimatedCost float64) (*cost.BudgetStatus, error)
	SaveActivity(ctx context.Context, record cost.ActivityRecord) error
}

// CostAwareWrapper decorates a TextGenerator with pricing, a daily budget
// guard and usage recording.
type CostAwareWrapper struct {
	provider   TextGenerator
	calculator *cost.Calculator
	ledger     UsageLedger
	command    string
	now        func() time.Time
}

type WrapperConfig struct {
	Provider   TextGenerator
	Calculator *cost.Calculator
	// Ledger may be nil, which disables the budget guard and recording.
	Ledger  UsageLedger
	Command string
}

func NewCostAwareWrapper(cfg WrapperConfig) *CostAwareWrapper {
	calculator := cfg.Calculator
	if calculator == nil {
		calculator = cost.NewCalculator()
	}
	command := cfg.Command
	if command == "" {
		command = "suggest"
	}
	return &CostAwareWrapper{
		provider:   cfg.Provider,
		calculator: calculator,
		ledger:     cfg.Ledger,
		command:    command,
		now:        time.Now,
	}
}

func (w *CostAwareWrapper) ProviderName() string {
	return w.provider.ProviderName()
}

// EstimateInputTokens approximates the token count of a prompt at four
// characters per token.
func EstimateInputTokens(texts ...string) int {
	n := 0
	for _, t := range texts {
		n += len(t)
	}
	return (n + 3) / 4
}

func (w *CostAwareWrapper) Generate(ctx context.Context, req GenerationRequest) (GenerationResponse, error) {
	providerName := w.provider.ProviderName()

	if w.ledger != nil {
		estimated := w.calculator.EstimateCost(providerName, req.Model,
			EstimateInputTokens(req.System, req.Prompt), req.MaxTokens)

		status, err := w.ledger.CheckBudget(ctx, estimated)
		switch {
		case err != nil:
			logger.Warn(ctx, "budget check skipped", "error", err)
		case status.IsExceeded:
			return GenerationResponse{}, errors.ErrBudgetExceeded.
				WithContext("today_total", status.TodayTotal).
				WithContext("limit", status.Limit)
		case status.IsWarning:
			logger.Warn(ctx, "daily budget usage is high",
				"percent_used", status.PercentUsed,
				"limit", status.Limit)
		}
	}

	start := w.now()
	resp, err := w.provider.Generate(ctx, req)
	if err != nil {
		return GenerationResponse{}, err
	}

	usage := &resp.Usage
	if usage.Model == "" {
		usage.Model = req.Model
	}
	usage.Provider = providerName
	usage.TotalTokens = usage.InputTokens + usage.OutputTokens
	usage.CostUSD = w.calculator.EstimateCost(providerName, usage.Model, usage.InputTokens, usage.OutputTokens)
	usage.DurationMs = w.now().Sub(start).Milliseconds()

	if w.ledger != nil {
		if err := w.ledger.SaveActivity(ctx, cost.ActivityRecord{
			Timestamp:    start,
			Command:      w.command,
			Provider:     providerName,
			Model:        usage.Model,
			TokensInput:  usage.InputTokens,
			TokensOutput: usage.OutputTokens,
			CostUSD:      usage.CostUSD,
			DurationMs:   usage.DurationMs,
		}); err != nil {
			logger.Warn(ctx, "failed to record usage", "error", err)
		}
	}

	return resp, nil
}
