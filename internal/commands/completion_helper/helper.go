package completion_helper

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"
)

// FlagComplete returns a ShellComplete func that lists the subcommands and
// flags of the current command on w, one per line.
func FlagComplete(w io.Writer) cli.ShellCompleteFunc {
	return func(_ context.Context, cmd *cli.Command) {
		for _, sub := range cmd.Commands {
			if !sub.Hidden {
				_, _ = fmt.Fprintln(w, sub.Name)
			}
		}
		for _, f := range cmd.Flags {
			for _, name := range f.Names() {
				if len(name) == 1 {
					_, _ = fmt.Fprintln(w, "-"+name)
				} else {
					_, _ = fmt.Fprintln(w, "--"+name)
				}
			}
		}
	}
}
