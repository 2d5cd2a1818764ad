package config

import (
	"context"
	"fmt"
	"io"

	"github.com/thomas-vilte/aicommit/internal/commands/completion_helper"
	"github.com/thomas-vilte/aicommit/internal/config"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/ui"
	"github.com/urfave/cli/v3"
)

type ConfigCommandFactory struct {
	homeDir string
	out     io.Writer
}

func NewConfigCommandFactory(homeDir string, out io.Writer) *ConfigCommandFactory {
	return &ConfigCommandFactory{homeDir: homeDir, out: out}
}

func (c *ConfigCommandFactory) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: t.GetMessage("config_usage", 0, nil),
		Commands: []*cli.Command{
			c.newShowCommand(t, cfg),
			c.newInitCommand(t),
			c.newSetCommand(t),
			c.newEditCommand(t),
		},
	}
}

func (c *ConfigCommandFactory) newShowCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: t.GetMessage("config_show_usage", 0, nil),
		Action: func(_ context.Context, _ *cli.Command) error {
			notSet := t.GetMessage("config_not_set", 0, nil)
			orNotSet := func(v string) string {
				if v == "" {
					return notSet
				}
				return v
			}

			ui.PrintSectionBanner(c.out, t.GetMessage("config_title", 0, map[string]interface{}{"Path": cfg.PathFile}))
			ui.PrintKeyValue(c.out, "provider", cfg.Provider)
			ui.PrintKeyValue(c.out, "model", cfg.EffectiveModel())
			ui.PrintKeyValue(c.out, "suggestions_count", fmt.Sprint(cfg.SuggestionsCount))
			ui.PrintKeyValue(c.out, "language", cfg.Language)
			ui.PrintKeyValue(c.out, "log_path", cfg.LogPath)
			ui.PrintKeyValue(c.out, "max_tokens", fmt.Sprint(cfg.MaxTokens))
			ui.PrintKeyValue(c.out, "temperature", fmt.Sprint(cfg.Temperature))
			ui.PrintKeyValue(c.out, "timeout", orNotSet(cfg.Timeout))
			ui.PrintKeyValue(c.out, "ollama_endpoint", cfg.OllamaEndpoint)
			ui.PrintKeyValue(c.out, "usage_db", orNotSet(cfg.UsageDB))
			ui.PrintKeyValue(c.out, "budget_daily", fmt.Sprintf("%.2f", cfg.BudgetDaily))
			ui.PrintKeyValue(c.out, config.EnvOpenAIAPIKey, orNotSet(maskKey(cfg.OpenAIAPIKey)))
			ui.PrintKeyValue(c.out, config.EnvGeminiAPIKey, orNotSet(maskKey(cfg.GeminiAPIKey)))
			_, _ = fmt.Fprintln(c.out)
			return nil
		},
	}
}

func (c *ConfigCommandFactory) newInitCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: t.GetMessage("config_init_usage", 0, nil),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   t.GetMessage("flag_force", 0, nil),
			},
		},
		ShellComplete: completion_helper.FlagComplete(c.out),
		Action: func(_ context.Context, command *cli.Command) error {
			cfg, err := config.InitConfig(c.homeDir, command.Bool("force"))
			if err != nil {
				return err
			}
			ui.PrintSuccess(c.out, t.GetMessage("config_written", 0, map[string]interface{}{"Path": cfg.PathFile}))
			return nil
		},
	}
}

// maskKey keeps only the edges of a credential.
func maskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 8:
		return "****"
	default:
		return key[:4] + "..." + key[len(key)-4:]
	}
}
