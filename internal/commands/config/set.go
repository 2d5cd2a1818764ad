package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/thomas-vilte/aicommit/internal/config"
	appErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/ui"
	"github.com/urfave/cli/v3"
)

func (c *ConfigCommandFactory) newSetCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     t.GetMessage("config_set_usage", 0, nil),
		ArgsUsage: t.GetMessage("config_set_args_usage", 0, nil),
		Action: func(_ context.Context, command *cli.Command) error {
			if command.Args().Len() < 2 {
				ui.PrintError(c.out, t.GetMessage("config_set_missing_args", 0, nil))
				return appErrors.ErrInvalidConfig.WithError(fmt.Errorf("missing arguments"))
			}

			key := strings.ToLower(command.Args().Get(0))
			value := command.Args().Get(1)

			// The file alone is edited so environment overrides never get
			// written back.
			cfg, err := config.LoadFile(c.homeDir)
			if err != nil {
				return err
			}
			if err := setValue(cfg, key, value); err != nil {
				return err
			}
			if err := config.SaveConfig(cfg); err != nil {
				return err
			}

			ui.PrintSuccess(c.out, t.GetMessage("config_set_success", 0, map[string]interface{}{
				"Key":   key,
				"Value": value,
			}))
			return nil
		},
	}
}

func setValue(cfg *config.Config, key, value string) error {
	invalid := func(err error) *appErrors.AppError {
		return appErrors.ErrInvalidConfig.WithError(err).WithContext("key", key)
	}

	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "suggestions_count", "count":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(fmt.Errorf("invalid count: %s", value))
		}
		cfg.SuggestionsCount = n
	case "language", "lang":
		cfg.Language = value
	case "log_path":
		cfg.LogPath = value
	case "max_tokens":
		n, err := strconv.Atoi(value)
		if err != nil {
			return invalid(fmt.Errorf("invalid max_tokens: %s", value))
		}
		cfg.MaxTokens = n
	case "temperature":
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return invalid(fmt.Errorf("invalid temperature: %s", value))
		}
		cfg.Temperature = float32(f)
	case "timeout":
		cfg.Timeout = value
	case "ollama_endpoint":
		cfg.OllamaEndpoint = value
	case "usage_db":
		cfg.UsageDB = value
	case "budget_daily":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return invalid(fmt.Errorf("invalid budget_daily: %s", value))
		}
		cfg.BudgetDaily = f
	case strings.ToLower(config.EnvOpenAIAPIKey), strings.ToLower(config.EnvGeminiAPIKey):
		return invalid(fmt.Errorf("API keys are read from the environment only")).
			WithSuggestion(fmt.Sprintf("Export %s or add it to .env", strings.ToUpper(key)))
	default:
		return invalid(fmt.Errorf("unknown configuration key: %s", key))
	}
	return nil
}
