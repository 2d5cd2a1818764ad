package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thomas-vilte/aicommit/internal/commands/config"
	"github.com/thomas-vilte/aicommit/internal/commands/registry"
	"github.com/thomas-vilte/aicommit/internal/commands/stats"
	"github.com/thomas-vilte/aicommit/internal/commands/suggests_commits"
	cfg "github.com/thomas-vilte/aicommit/internal/config"
	"github.com/thomas-vilte/aicommit/internal/git"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/providers"
	"github.com/thomas-vilte/aicommit/internal/ui"
	"github.com/thomas-vilte/aicommit/internal/version"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, translations, err := initializeApp()
	if err != nil {
		ui.HandleAppError(os.Stderr, err, translations)
		os.Exit(1)
	}

	if err := app.Run(ctx, os.Args); err != nil {
		stop()
		// Interrupted: nothing was logged or committed, so exit quietly.
		if errors.Is(err, context.Canceled) {
			ui.StopActiveSpinner()
			os.Exit(130)
		}
		ui.HandleAppError(os.Stderr, err, translations)
		os.Exit(1)
	}
}

func initializeApp() (*cli.Command, *i18n.Translations, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, nil, fmt.Errorf("could not resolve the home directory: %w", err)
	}

	if err := cfg.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}

	cfgApp, err := cfg.LoadConfig(homeDir)
	if err != nil {
		return nil, nil, err
	}

	translations, err := i18n.NewTranslations(cfgApp.Language, "")
	if err != nil {
		return nil, nil, fmt.Errorf("error loading translations: %w", err)
	}

	registerCommand := registry.NewRegistry(cfgApp, translations)
	if err := registerCommand.Register("stats", stats.NewStatsCommand(stats.OpenReport, os.Stdout)); err != nil {
		return nil, translations, err
	}
	if err := registerCommand.Register("config", config.NewConfigCommandFactory(homeDir, os.Stdout)); err != nil {
		return nil, translations, err
	}

	suggest := suggests_commits.NewSuggestCommandFactory(
		git.NewGitService(),
		providers.NewTextGenerator,
		suggests_commits.OpenLedger,
		os.Stdin,
		os.Stdout,
	)

	// -v is --verbose here.
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}

	app := suggest.CreateCommand(translations, cfgApp)
	app.Name = "ai-commit"
	app.Version = version.FullVersion()
	app.Commands = registerCommand.CreateCommands()
	app.EnableShellCompletion = true

	return app, translations, nil
}
