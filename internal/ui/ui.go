package ui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	domainErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/i18n"
)

var (
	// Colors for different message types
	Success = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Warning = color.New(color.FgYellow, color.Bold)
	Info    = color.New(color.FgCyan, color.Bold)
	Accent  = color.New(color.FgMagenta, color.Bold)
	Dim     = color.New(color.FgHiBlack)

	CommitEmoji  = "📝"
	SuccessEmoji = Success.Sprint("✅")
	WarningEmoji = Warning.Sprint("⚠️")
	InfoEmoji    = Info.Sprint("ℹ️")
	StatsEmoji   = Accent.Sprint("📊")

	diffAdded   = color.New(color.FgGreen)
	diffRemoved = color.New(color.FgRed)
	diffHeader  = color.New(color.Bold)
	diffHunk    = color.New(color.FgCyan)
)

var activeSpinner *SmartSpinner

// SmartSpinner is a spinner that only animates on an interactive stdout.
type SmartSpinner struct {
	spinner *spinner.Spinner
	out     io.Writer
}

// NewSmartSpinner creates a spinner writing to w. Writers other than
// os.Stdout get a silent spinner, so captured output stays clean.
func NewSmartSpinner(w io.Writer, initialMessage string) *SmartSpinner {
	if w != os.Stdout {
		return &SmartSpinner{out: w}
	}
	s := spinner.New(
		spinner.CharSets[14],
		100*time.Millisecond,
		spinner.WithColor("cyan"),
		spinner.WithWriter(w),
		spinner.WithSuffix(" "+CommitEmoji+" "+initialMessage),
	)
	return &SmartSpinner{spinner: s, out: w}
}

// Start starts the spinner and registers it as the active spinner.
func (s *SmartSpinner) Start() {
	activeSpinner = s
	if s.spinner != nil {
		s.spinner.Start()
	}
}

func (s *SmartSpinner) Stop() {
	if s.spinner != nil {
		s.spinner.Stop()
	}
	if activeSpinner == s {
		activeSpinner = nil
	}
}

// StopActiveSpinner stops the spinner still running, if any.
func StopActiveSpinner() {
	if activeSpinner != nil {
		activeSpinner.Stop()
	}
}

// Error stops the spinner and reports msg in its place.
func (s *SmartSpinner) Error(msg string) {
	s.Stop()
	PrintError(s.out, msg)
}

func PrintSuccess(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", SuccessEmoji, Success.Sprint(msg))
}

func PrintError(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", Error.Sprint("❌"), Error.Sprint(msg))
}

func PrintWarning(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", WarningEmoji, Warning.Sprint(msg))
}

func PrintInfo(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", InfoEmoji, Info.Sprint(msg))
}

func PrintSectionBanner(w io.Writer, title string) {
	separator := color.New(color.FgCyan).Sprint("━━━━━━━━━━━━━━━━━━━━━━━")
	_, _ = fmt.Fprintf(w, "\n%s\n", separator)
	_, _ = fmt.Fprintf(w, "%s %s\n", StatsEmoji, Accent.Sprint(title))
	_, _ = fmt.Fprintf(w, "%s\n\n", separator)
}

func PrintKeyValue(w io.Writer, key, value string) {
	keyColored := Dim.Sprint(key + ":")
	valueColored := color.New(color.FgWhite, color.Bold).Sprint(value)
	_, _ = fmt.Fprintf(w, "   %s %s\n", keyColored, valueColored)
}

// PrintFileList prints one bullet per path under a header.
func PrintFileList(w io.Writer, header string, files []string) {
	_, _ = fmt.Fprintf(w, "\n%s\n", header)
	for _, file := range files {
		_, _ = fmt.Fprintf(w, "   • %s\n", file)
	}
}

// PrintDiff writes a unified diff with added, removed, header and hunk lines
// coloured the way `git diff --color` does.
func PrintDiff(w io.Writer, diff string) {
	for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git"), strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			_, _ = diffHeader.Fprintln(w, line)
		case strings.HasPrefix(line, "@@"):
			_, _ = diffHunk.Fprintln(w, line)
		case strings.HasPrefix(line, "+"):
			_, _ = diffAdded.Fprintln(w, line)
		case strings.HasPrefix(line, "-"):
			_, _ = diffRemoved.Fprintln(w, line)
		default:
			_, _ = fmt.Fprintln(w, line)
		}
	}
}

// PrintSuggestions prints the numbered list, starting at 1.
func PrintSuggestions(w io.Writer, header string, messages []string) {
	_, _ = fmt.Fprintf(w, "\n%s\n", Accent.Sprint(header))
	for i, msg := range messages {
		_, _ = fmt.Fprintf(w, "%s %s\n", Info.Sprintf("%d.", i+1), msg)
	}
	_, _ = fmt.Fprintln(w)
}

// LineReader reads operator answers one line at a time. A read blocked on
// the terminal gives up as soon as its context is done.
type LineReader struct {
	r       *bufio.Reader
	lines   chan lineResult
	pending bool
}

type lineResult struct {
	line string
	err  error
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: bufio.NewReader(r), lines: make(chan lineResult, 1)}
}

// ReadLine returns the next line without its line terminator. End of input
// counts as an empty answer. A line still being read when ctx is done is
// handed to the next call.
func (lr *LineReader) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !lr.pending {
		lr.pending = true
		go func() {
			line, err := lr.r.ReadString('\n')
			lr.lines <- lineResult{line: line, err: err}
		}()
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-lr.lines:
		lr.pending = false
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", nil
		}
		return strings.TrimRight(res.line, "\r\n"), nil
	}
}

// Prompt writes question and returns the operator's answer.
func Prompt(ctx context.Context, w io.Writer, r *LineReader, question string) (string, error) {
	_, _ = fmt.Fprint(w, question)
	answer, err := r.ReadLine(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(w)
	}
	return answer, err
}

// AskConfirmation only accepts "y" (any case) as a yes.
func AskConfirmation(ctx context.Context, w io.Writer, r *LineReader, question string) (bool, error) {
	answer, err := Prompt(ctx, w, r, question)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(answer), "y"), nil
}

var clipboardWriteAll = clipboard.WriteAll

func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return errors.New("clipboard not supported on this system")
	}
	return clipboardWriteAll(text)
}

// HandleAppError prints an error in a friendly way. If translations is nil,
// English defaults are used.
func HandleAppError(w io.Writer, err error, t *i18n.Translations) {
	if err == nil {
		return
	}
	StopActiveSpinner()

	var appErr *domainErrors.AppError
	if !errors.As(err, &appErr) {
		PrintError(w, err.Error())
		return
	}

	detailsPrefix := "Details:"
	tryPrefix := "💡 Try: "
	if t != nil {
		detailsPrefix = t.GetMessage("ui_error_details", 0, nil)
		tryPrefix = t.GetMessage("ui_error_try_suggestion", 0, nil) + " "
	}

	_, _ = fmt.Fprintln(w)
	_, _ = Error.Fprintf(w, "❌ %s: %s\n", appErr.Type, appErr.Message)

	if appErr.Err != nil {
		_, _ = Dim.Fprintf(w, "   %s %v\n", detailsPrefix, appErr.Err)
	}
	if stderr, ok := appErr.Context["stderr"].(string); ok && stderr != "" {
		_, _ = Dim.Fprintf(w, "   %s\n", strings.TrimSpace(stderr))
	}

	if appErr.Suggestion != "" {
		_, _ = fmt.Fprintln(w)
		_, _ = color.New(color.FgCyan).Fprint(w, tryPrefix)
		for i, line := range strings.Split(appErr.Suggestion, "\n") {
			if i == 0 {
				_, _ = fmt.Fprintln(w, line)
			} else {
				_, _ = fmt.Fprintf(w, "       %s\n", line)
			}
		}
	}
	_, _ = fmt.Fprintln(w)
}
