package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	domainErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/logger"
	"github.com/thomas-vilte/aicommit/internal/models"
	"github.com/thomas-vilte/aicommit/internal/ui"
)

// gitService is the part of git.GitService the controller drives.
type gitService interface {
	GetStagedChange(ctx context.Context) (models.StagedChange, error)
	GetRepoName(ctx context.Context) string
	GetCurrentBranch(ctx context.Context) string
	CreateCommit(ctx context.Context, message string) error
}

type suggestionGenerator interface {
	GenerateSuggestions(ctx context.Context, req models.SuggestionRequest) models.SuggestionResult
}

type auditLog interface {
	Append(entry models.LogEntry) error
}

// Options are the per-run switches of the suggestion flow.
type Options struct {
	Count      int
	Model      string
	Provider   string
	AutoCommit bool
	DryRun     bool
	Verbose    bool
	Copy       bool
	// Timeout bounds each git and generation call; zero means no limit.
	// Operator prompts are never bounded.
	Timeout time.Duration
}

type SuggestionHandler struct {
	gitService gitService
	generator  suggestionGenerator
	audit      auditLog
	t          *i18n.Translations
	in         *ui.LineReader
	out        io.Writer

	now      func() time.Time
	newRunID func() string
	copyFn   func(string) error
}

// NewSuggestionHandler wires the controller. generator may be nil for dry
// runs, which never reach the generation step.
func NewSuggestionHandler(gitSvc gitService, generator suggestionGenerator, audit auditLog, t *i18n.Translations, in io.Reader, out io.Writer) *SuggestionHandler {
	return &SuggestionHandler{
		gitService: gitSvc,
		generator:  generator,
		audit:      audit,
		t:          t,
		in:         ui.NewLineReader(in),
		out:        out,
		now:        time.Now,
		newRunID:   func() string { return uuid.New().String() },
		copyFn:     ui.CopyToClipboard,
	}
}

// Run drives one pass from the staged diff to the commit. A nil return covers
// every clean ending: nothing staged, dry run, no message, declined
// confirmation and a successful commit. Once ctx is done Run returns ctx.Err()
// and neither writes the audit record nor commits.
func (h *SuggestionHandler) Run(ctx context.Context, opts Options) error {
	log := logger.FromContext(ctx)

	change, err := h.stagedChange(ctx, opts.Timeout)
	if err != nil {
		return err
	}
	if change.IsEmpty() {
		ui.PrintInfo(h.out, h.t.GetMessage("no_staged_changes", 0, nil))
		log.Info("run ended", "reason", domainErrors.ErrNoStagedChanges.Message)
		return nil
	}
	log.Debug("staged changes detected", "count", len(change.Files))

	if opts.DryRun {
		h.printDryRun(change, opts)
		return nil
	}

	result, err := h.generate(ctx, change, opts)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		return err
	}

	ui.PrintSuggestions(h.out, h.t.GetMessage("suggestions_header", 0, nil), result.Messages)
	if opts.Verbose {
		ui.PrintTokenUsage(h.out, result.Usage, h.t)
		_, _ = fmt.Fprintln(h.out)
	}

	message, err := h.selectMessage(ctx, result.Messages)
	if err != nil {
		return err
	}
	if message == "" {
		ui.PrintWarning(h.out, h.t.GetMessage("no_message_provided", 0, nil))
		log.Info("run ended", "reason", domainErrors.ErrNoUserSelection.Message)
		return nil
	}

	if opts.Copy {
		if err := h.copyFn(message); err != nil {
			ui.PrintWarning(h.out, h.t.GetMessage("copy_failed", 0, map[string]interface{}{"Error": err.Error()}))
		} else {
			ui.PrintInfo(h.out, h.t.GetMessage("copied_to_clipboard", 0, nil))
		}
	}

	entry := h.buildLogEntry(ctx, change, result, message, opts)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.audit.Append(entry); err != nil {
		return domainErrors.ErrAuditWrite.WithError(err)
	}
	log.Info("audit record written", "run_id", entry.RunID)

	if !opts.AutoCommit {
		ok, err := h.confirm(ctx, message)
		if err != nil {
			return err
		}
		if !ok {
			ui.PrintWarning(h.out, h.t.GetMessage("commit_aborted", 0, nil))
			return nil
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	commitCtx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := h.gitService.CreateCommit(commitCtx, message); err != nil {
		return err
	}

	ui.PrintSuccess(h.out, h.t.GetMessage("commit_success", 0, nil))
	return nil
}

func (h *SuggestionHandler) stagedChange(ctx context.Context, timeout time.Duration) (models.StagedChange, error) {
	gitCtx, cancel := withTimeout(ctx, timeout)
	defer cancel()
	return h.gitService.GetStagedChange(gitCtx)
}

func (h *SuggestionHandler) printDryRun(change models.StagedChange, opts Options) {
	_, _ = color.New(color.FgCyan, color.Bold).Fprintln(h.out,
		h.t.GetMessage("dry_run_diff_header", 0, map[string]interface{}{"Provider": opts.Provider}))
	ui.PrintDiff(h.out, change.Diff)
	ui.PrintFileList(h.out, h.t.GetMessage("dry_run_files_header", 0, nil), change.Files)
	_, _ = fmt.Fprintln(h.out)
	ui.PrintInfo(h.out, h.t.GetMessage("dry_run_done", 0, nil))
}

func (h *SuggestionHandler) generate(ctx context.Context, change models.StagedChange, opts Options) (models.SuggestionResult, error) {
	ui.PrintInfo(h.out, h.t.GetMessage("using_model", opts.Count, map[string]interface{}{
		"Model": opts.Model,
		"Count": opts.Count,
	}))

	genCtx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	spinner := ui.NewSmartSpinner(h.out, h.t.GetMessage("generating_suggestions", 0, nil))
	spinner.Start()
	result := h.generator.GenerateSuggestions(genCtx, models.SuggestionRequest{
		Diff:  change.Diff,
		Files: change.Files,
		Count: opts.Count,
		Model: opts.Model,
	})

	if len(result.Messages) > 0 {
		spinner.Stop()
		return result, nil
	}

	if errors.Is(result.Cause, domainErrors.ErrBudgetExceeded) || ctx.Err() != nil {
		spinner.Stop()
		return result, result.Cause
	}
	spinner.Error(h.t.GetMessage("no_suggestions", 0, map[string]interface{}{"Provider": opts.Provider}))
	if result.Cause == nil {
		return result, domainErrors.ErrGenerationFailure
	}
	if errors.Is(result.Cause, domainErrors.ErrGenerationFailure) {
		return result, result.Cause
	}
	return result, domainErrors.ErrGenerationFailure.WithError(result.Cause)
}

// selectMessage reads the operator's choice. A number in [1, len(messages)]
// picks that suggestion; any other non-empty line is the message as typed.
// An empty answer returns "".
func (h *SuggestionHandler) selectMessage(ctx context.Context, messages []string) (string, error) {
	ui.PrintInfo(h.out, h.t.GetMessage("selection_prompt", 0, map[string]interface{}{"Max": len(messages)}))
	choice, err := ui.Prompt(ctx, h.out, h.in,
		h.t.GetMessage("choice_prompt", 0, map[string]interface{}{"Max": len(messages)}))
	if err != nil {
		return "", err
	}

	trimmed := strings.TrimSpace(choice)
	if trimmed == "" {
		return "", nil
	}
	if n, ok := parseIndex(trimmed, len(messages)); ok {
		return messages[n-1], nil
	}
	return choice, nil
}

// parseIndex accepts plain decimal digits only, so "+2" or "0x1" stay text.
func parseIndex(s string, count int) (int, bool) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > count {
		return 0, false
	}
	return n, true
}

func (h *SuggestionHandler) confirm(ctx context.Context, message string) (bool, error) {
	_, _ = fmt.Fprintf(h.out, "\n%s\n    %s\n\n",
		h.t.GetMessage("about_to_run", 0, nil),
		color.New(color.Bold).Sprintf("git commit -m %q", message))
	return ui.AskConfirmation(ctx, h.out, h.in, h.t.GetMessage("confirm_commit", 0, nil))
}

func (h *SuggestionHandler) buildLogEntry(ctx context.Context, change models.StagedChange, result models.SuggestionResult, message string, opts Options) models.LogEntry {
	gitCtx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	return models.LogEntry{
		RunID:         h.newRunID(),
		Timestamp:     h.now().UTC(),
		Repo:          h.gitService.GetRepoName(gitCtx),
		Branch:        h.gitService.GetCurrentBranch(gitCtx),
		Files:         change.Files,
		Diff:          change.Diff,
		Suggestions:   result.Messages,
		ChosenMessage: message,
		Tokens: models.LogTokens{
			Input:  result.Usage.InputTokens,
			Output: result.Usage.OutputTokens,
		},
		CostUSD:  result.Usage.CostUSD,
		Model:    opts.Model,
		Provider: opts.Provider,
	}
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
