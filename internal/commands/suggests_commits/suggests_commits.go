package suggests_commits

import (
	"context"
	"io"

	"github.com/thomas-vilte/aicommit/internal/ai"
	"github.com/thomas-vilte/aicommit/internal/audit"
	"github.com/thomas-vilte/aicommit/internal/commands/handler"
	"github.com/thomas-vilte/aicommit/internal/config"
	domainErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/logger"
	"github.com/thomas-vilte/aicommit/internal/models"
	"github.com/thomas-vilte/aicommit/internal/services/cost"
	"github.com/urfave/cli/v3"
)

// gitService is a minimal interface for testing purposes
type gitService interface {
	GetStagedChange(ctx context.Context) (models.StagedChange, error)
	GetRepoName(ctx context.Context) string
	GetCurrentBranch(ctx context.Context) string
	CreateCommit(ctx context.Context, message string) error
}

type suggestionGenerator interface {
	GenerateSuggestions(ctx context.Context, req models.SuggestionRequest) models.SuggestionResult
}

// Ledger is the usage ledger the generation wrapper records into.
type Ledger interface {
	ai.UsageLedger
	Close() error
}

// GeneratorFactory builds the provider client; providers.NewTextGenerator in
// production.
type GeneratorFactory func(ctx context.Context, cfg *config.Config, provider string) (ai.TextGenerator, error)

// LedgerOpener opens the usage ledger at path.
type LedgerOpener func(path string, budgetDaily float64) (Ledger, error)

// OpenLedger opens the SQLite usage ledger.
func OpenLedger(path string, budgetDaily float64) (Ledger, error) {
	manager, err := cost.NewManager(path, budgetDaily)
	if err != nil {
		return nil, err
	}
	return manager, nil
}

type SuggestCommandFactory struct {
	gitService   gitService
	newGenerator GeneratorFactory
	openLedger   LedgerOpener
	in           io.Reader
	out          io.Writer
}

func NewSuggestCommandFactory(gitSvc gitService, newGenerator GeneratorFactory, openLedger LedgerOpener, in io.Reader, out io.Writer) *SuggestCommandFactory {
	return &SuggestCommandFactory{
		gitService:   gitSvc,
		newGenerator: newGenerator,
		openLedger:   openLedger,
		in:           in,
		out:          out,
	}
}

func (f *SuggestCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:   "suggest",
		Usage:  t.GetMessage("app_usage", 0, nil),
		Flags:  f.createFlags(cfg, t),
		Action: f.createAction(cfg, t),
	}
}

func (f *SuggestCommandFactory) createFlags(cfg *config.Config, t *i18n.Translations) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "num-suggestions",
			Aliases: []string{"n"},
			Value:   int64(cfg.SuggestionsCount),
			Usage:   t.GetMessage("flag_num_suggestions", 0, nil),
		},
		&cli.StringFlag{
			Name:    "model",
			Aliases: []string{"m"},
			Usage:   t.GetMessage("flag_model", 0, nil),
		},
		&cli.StringFlag{
			Name:    "provider",
			Aliases: []string{"p"},
			Value:   cfg.Provider,
			Usage:   t.GetMessage("flag_provider", 0, nil),
		},
		&cli.BoolFlag{
			Name:  "auto-commit",
			Usage: t.GetMessage("flag_auto_commit", 0, nil),
		},
		&cli.BoolFlag{
			Name:  "dry-run",
			Usage: t.GetMessage("flag_dry_run", 0, nil),
		},
		&cli.StringFlag{
			Name:  "log-path",
			Value: cfg.LogPath,
			Usage: t.GetMessage("flag_log_path", 0, nil),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   t.GetMessage("flag_verbose", 0, nil),
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: t.GetMessage("flag_debug", 0, nil),
		},
		&cli.StringFlag{
			Name:    "lang",
			Aliases: []string{"l"},
			Value:   cfg.Language,
			Usage:   t.GetMessage("flag_lang", 0, nil),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Value: cfg.TimeoutDuration(),
			Usage: t.GetMessage("flag_timeout", 0, nil),
		},
		&cli.BoolFlag{
			Name:  "copy",
			Usage: t.GetMessage("flag_copy", 0, nil),
		},
	}
}

func (f *SuggestCommandFactory) createAction(cfg *config.Config, t *i18n.Translations) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		logger.Initialize(command.Bool("debug"), command.Bool("verbose"))
		log := logger.FromContext(ctx)

		count := int(command.Int("num-suggestions"))
		if count < config.MinSuggestions || count > config.MaxSuggestions {
			return domainErrors.ErrInvalidSuggestionCount.WithContext("count", count)
		}

		lang := command.String("lang")
		if err := t.SetLanguage(lang); err != nil {
			log.Warn("unsupported language, falling back to English", "language", lang)
			_ = t.SetLanguage(config.LangEN)
		}

		provider := command.String("provider")
		if !config.IsSupportedProvider(provider) {
			return domainErrors.ErrUnsupportedProvider.WithContext("provider", provider)
		}

		opts := handler.Options{
			Count:      count,
			Model:      resolveModel(cfg, provider, command.String("model")),
			Provider:   provider,
			AutoCommit: command.Bool("auto-commit"),
			DryRun:     command.Bool("dry-run"),
			Verbose:    command.Bool("verbose"),
			Copy:       command.Bool("copy"),
			Timeout:    command.Duration("timeout"),
		}

		log.Info("executing suggest command",
			"count", opts.Count,
			"model", opts.Model,
			"provider", opts.Provider,
			"dry_run", opts.DryRun,
			"auto_commit", opts.AutoCommit)

		var generator suggestionGenerator
		if !opts.DryRun {
			textGenerator, err := f.newGenerator(ctx, cfg, provider)
			if err != nil {
				return err
			}

			if closer, ok := textGenerator.(io.Closer); ok {
				defer func() { _ = closer.Close() }()
			}

			ledger := f.ledger(ctx, cfg)
			if ledger != nil {
				defer func() { _ = ledger.Close() }()
			}

			generator = f.buildGenerator(cfg, t, textGenerator, ledger)
		}

		h := handler.NewSuggestionHandler(f.gitService, generator, audit.NewLog(command.String("log-path")), t, f.in, f.out)
		return h.Run(ctx, opts)
	}
}

// ledger opens the usage ledger, or returns nil when it is disabled or cannot
// be opened. A broken ledger never blocks a run.
func (f *SuggestCommandFactory) ledger(ctx context.Context, cfg *config.Config) Ledger {
	if cfg.UsageDB == "" || f.openLedger == nil {
		return nil
	}
	ledger, err := f.openLedger(cfg.UsageDB, cfg.BudgetDaily)
	if err != nil {
		logger.Warn(ctx, "usage ledger unavailable", "path", cfg.UsageDB,
			"error", domainErrors.ErrUsageLedger.WithError(err))
		return nil
	}
	return ledger
}

func (f *SuggestCommandFactory) buildGenerator(cfg *config.Config, t *i18n.Translations, textGenerator ai.TextGenerator, ledger Ledger) *ai.SuggestionGenerator {
	wrapperCfg := ai.WrapperConfig{
		Provider:   textGenerator,
		Calculator: cost.NewCalculator(cfg.CostOptions()...),
	}
	if ledger != nil {
		wrapperCfg.Ledger = ledger
	}

	return ai.NewSuggestionGenerator(
		ai.NewCostAwareWrapper(wrapperCfg),
		ai.WithLanguage(t.Language()),
		ai.WithTemperature(cfg.Temperature),
		ai.WithMaxTokens(cfg.MaxTokens),
	)
}

// resolveModel picks the --model flag, then the configured model when it
// belongs to the selected provider, then the provider's default.
func resolveModel(cfg *config.Config, provider, flagModel string) string {
	if flagModel != "" {
		return flagModel
	}
	if provider == cfg.Provider && cfg.Model != "" {
		return cfg.Model
	}
	return string(config.DefaultModelForProvider(config.Provider(provider)))
}
