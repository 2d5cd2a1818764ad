package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/models"
)

func PrintTokenUsage(w io.Writer, usage models.TokenUsage, t *i18n.Translations) {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	_, _ = cyan.Fprint(w, "📊 ")
	_, _ = fmt.Fprintf(w, "%s: ", t.GetMessage("ui_token_usage", 0, nil))
	_, _ = fmt.Fprintf(w, "%s %d | ", t.GetMessage("ui_input", 0, nil), usage.InputTokens)
	_, _ = fmt.Fprintf(w, "%s %d | ", t.GetMessage("ui_output", 0, nil), usage.OutputTokens)
	_, _ = fmt.Fprintf(w, "%s %d\n", t.GetMessage("ui_total", 0, nil), usage.InputTokens+usage.OutputTokens)

	_, _ = yellow.Fprint(w, "💰 ")
	_, _ = fmt.Fprintf(w, "%s: ", t.GetMessage("ui_cost", 0, nil))
	_, _ = yellow.Fprintf(w, "$%.6f USD\n", usage.CostUSD)

	if usage.DurationMs > 0 {
		_, _ = fmt.Fprintf(w, "⏱️  %s: %dms\n", t.GetMessage("ui_duration", 0, nil), usage.DurationMs)
	}
}
