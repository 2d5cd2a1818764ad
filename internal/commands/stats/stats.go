package stats

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/thomas-vilte/aicommit/internal/config"
	appErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/services/cost"
	"github.com/urfave/cli/v3"
)

const separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// UsageReport is the read side of the usage ledger.
type UsageReport interface {
	GetTodayHistory(ctx context.Context) ([]cost.ActivityRecord, error)
	GetDailyTotal(ctx context.Context) (float64, error)
	GetMonthlyTotal(ctx context.Context) (float64, error)
	GetMonthlyBreakdown(ctx context.Context) ([]cost.ModelStats, error)
	CheckBudget(ctx context.Context, estimatedCost float64) (*cost.BudgetStatus, error)
	Close() error
}

// ReportOpener opens the ledger at path for reading.
type ReportOpener func(path string, budgetDaily float64) (UsageReport, error)

// OpenReport opens the SQLite usage ledger.
func OpenReport(path string, budgetDaily float64) (UsageReport, error) {
	manager, err := cost.NewManager(path, budgetDaily)
	if err != nil {
		return nil, err
	}
	return manager, nil
}

type StatsCommand struct {
	open ReportOpener
	out  io.Writer
	now  func() time.Time
}

func NewStatsCommand(open ReportOpener, out io.Writer) *StatsCommand {
	return &StatsCommand{open: open, out: out, now: time.Now}
}

func (c *StatsCommand) CreateCommand(t *i18n.Translations, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:    "stats",
		Aliases: []string{"cost"},
		Usage:   t.GetMessage("stats_usage", 0, nil),
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "monthly",
				Aliases: []string{"m"},
				Usage:   t.GetMessage("flag_monthly", 0, nil),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cfg.UsageDB == "" {
				_, _ = fmt.Fprintln(c.out, t.GetMessage("stats_ledger_disabled", 0, nil))
				return nil
			}

			report, err := c.open(cfg.UsageDB, cfg.BudgetDaily)
			if err != nil {
				return appErrors.ErrUsageLedger.WithError(err).WithContext("path", cfg.UsageDB)
			}
			defer func() { _ = report.Close() }()

			if cmd.Bool("monthly") {
				return c.showMonthly(ctx, report, t)
			}
			return c.showDaily(ctx, report, t, cfg.BudgetDaily)
		},
	}
}

func (c *StatsCommand) showDaily(ctx context.Context, report UsageReport, t *i18n.Translations, budgetDaily float64) error {
	records, err := report.GetTodayHistory(ctx)
	if err != nil {
		return err
	}
	total, err := report.GetDailyTotal(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)
	dim := color.New(color.FgHiBlack)

	_, _ = cyan.Fprintf(c.out, "\n📊 %s\n", t.GetMessage("stats_title_today", 0, map[string]interface{}{
		"Date": c.now().Format("2006-01-02"),
	}))
	_, _ = fmt.Fprintln(c.out, separator)

	if len(records) == 0 {
		_, _ = fmt.Fprintf(c.out, "%s\n\n", t.GetMessage("stats_no_activity", 0, nil))
		return nil
	}

	for _, record := range records {
		_, _ = fmt.Fprintf(c.out, "%s - %s/%s: %s %s\n",
			record.Timestamp.Format("15:04"),
			record.Provider,
			record.Model,
			yellow.Sprintf("$%.4f", record.CostUSD),
			dim.Sprintf("(%d→%d tok)", record.TokensInput, record.TokensOutput),
		)
	}

	_, _ = fmt.Fprintln(c.out, separator)
	_, _ = cyan.Fprintf(c.out, "%s: ", t.GetMessage("stats_total", 0, nil))
	_, _ = yellow.Fprintf(c.out, "$%.4f USD\n", total)

	if budgetDaily > 0 {
		status, err := report.CheckBudget(ctx, 0)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(c.out, "%s: %s\n", t.GetMessage("stats_budget", 0, nil),
			t.GetMessage("stats_budget_value", 0, map[string]interface{}{
				"Used":    fmt.Sprintf("%.4f", status.TodayTotal),
				"Limit":   fmt.Sprintf("%.2f", status.Limit),
				"Percent": fmt.Sprintf("%.0f", status.PercentUsed),
			}))
	}
	_, _ = fmt.Fprintln(c.out)
	return nil
}

func (c *StatsCommand) showMonthly(ctx context.Context, report UsageReport, t *i18n.Translations) error {
	breakdown, err := report.GetMonthlyBreakdown(ctx)
	if err != nil {
		return err
	}
	total, err := report.GetMonthlyTotal(ctx)
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow)

	_, _ = cyan.Fprintf(c.out, "\n📅 %s\n", t.GetMessage("stats_title_month", 0, map[string]interface{}{
		"Month": c.now().Format("January 2006"),
	}))
	_, _ = fmt.Fprintln(c.out, separator)

	if len(breakdown) == 0 {
		_, _ = fmt.Fprintf(c.out, "%s\n\n", t.GetMessage("stats_no_activity", 0, nil))
		return nil
	}

	width := 10
	for _, stat := range breakdown {
		if n := len(label(stat)); n > width {
			width = n
		}
	}

	calls := t.GetMessage("stats_calls", 0, nil)
	tokens := t.GetMessage("stats_tokens", 0, nil)
	_, _ = fmt.Fprintf(c.out, "%-*s │ %8s │ %12s │ %10s\n", width, "", calls, tokens, "USD")
	_, _ = fmt.Fprintf(c.out, "%s─┼─%s─┼─%s─┼─%s\n",
		strings.Repeat("─", width), strings.Repeat("─", 8), strings.Repeat("─", 12), strings.Repeat("─", 10))

	callCount := 0
	for _, stat := range breakdown {
		callCount += stat.CallCount
		_, _ = fmt.Fprintf(c.out, "%-*s │ %8d │ %12d │ %s\n",
			width, label(stat),
			stat.CallCount,
			stat.TokensInput+stat.TokensOutput,
			yellow.Sprintf("$%9.4f", stat.TotalCost))
	}

	_, _ = fmt.Fprintln(c.out, separator)
	_, _ = fmt.Fprintf(c.out, "%s: %d %s │ %s\n\n",
		t.GetMessage("stats_total", 0, nil),
		callCount, strings.ToLower(calls),
		yellow.Sprintf("$%.4f USD", total))
	return nil
}

func label(stat cost.ModelStats) string {
	return stat.Provider + "/" + stat.Model
}
