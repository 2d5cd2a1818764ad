package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/thomas-vilte/aicommit/internal/config"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/urfave/cli/v3"
)

var errNoEditor = errors.New("no editor found: set $EDITOR")

func (c *ConfigCommandFactory) newEditCommand(t *i18n.Translations) *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: t.GetMessage("config_edit_usage", 0, nil),
		Action: func(ctx context.Context, _ *cli.Command) error {
			editor, err := findEditor()
			if err != nil {
				return err
			}

			path := config.DefaultConfigPath(c.homeDir)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				if _, err := config.InitConfig(c.homeDir, false); err != nil {
					return err
				}
			}

			cmd := exec.CommandContext(ctx, editor, path)
			cmd.Stdin = os.Stdin
			cmd.Stdout = c.out
			cmd.Stderr = os.Stderr
			if err := cmd.Run(); err != nil {
				return fmt.Errorf("error opening editor %s: %w", editor, err)
			}
			return nil
		},
	}
}

func findEditor() (string, error) {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return editor, nil
	}
	for _, candidate := range []string{"nano", "vim", "vi"} {
		if _, err := exec.LookPath(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", errNoEditor
}
