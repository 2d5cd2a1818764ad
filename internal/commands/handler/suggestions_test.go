package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thomas-vilte/aicommit/internal/audit"
	domainErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/models"
)

func init() {
	color.NoColor = true
}

type mockGitService struct {
	mock.Mock
}

func (m *mockGitService) GetStagedChange(ctx context.Context) (models.StagedChange, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.StagedChange), args.Error(1)
}

func (m *mockGitService) GetRepoName(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

func (m *mockGitService) GetCurrentBranch(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

func (m *mockGitService) CreateCommit(ctx context.Context, message string) error {
	return m.Called(ctx, message).Error(0)
}

type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) GenerateSuggestions(ctx context.Context, req models.SuggestionRequest) models.SuggestionResult {
	return m.Called(ctx, req).Get(0).(models.SuggestionResult)
}

type failingAudit struct{}

func (failingAudit) Append(models.LogEntry) error {
	return errors.New("disk full")
}

var stagedChange = models.StagedChange{
	Diff:  "diff --git a/foo.py b/foo.py\n--- a/foo.py\n+++ b/foo.py\n@@ -0,0 +1 @@\n+x=1\n",
	Files: []string{"foo.py"},
}

var threeSuggestions = models.SuggestionResult{
	Messages: []string{"Add foo", "Initialize x variable", "Create foo module"},
	Usage: models.TokenUsage{
		InputTokens:  120,
		OutputTokens: 14,
		TotalTokens:  134,
		CostUSD:      0.000208,
		Model:        "gpt-3.5-turbo",
		Provider:     "openai",
	},
}

var defaultOpts = Options{Count: 3, Model: "gpt-3.5-turbo", Provider: "openai"}

type fixture struct {
	git     *mockGitService
	gen     *mockGenerator
	logPath string
	out     *bytes.Buffer
	copied  []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		git:     new(mockGitService),
		gen:     new(mockGenerator),
		logPath: filepath.Join(t.TempDir(), "logs", "commit_log.json"),
		out:     new(bytes.Buffer),
	}
}

func (f *fixture) handler(t *testing.T, stdin string) *SuggestionHandler {
	t.Helper()
	trans, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	h := NewSuggestionHandler(f.git, f.gen, audit.NewLog(f.logPath), trans, strings.NewReader(stdin), f.out)
	h.now = func() time.Time { return time.Date(2024, 5, 15, 14, 30, 0, 0, time.FixedZone("ART", -3*3600)) }
	h.newRunID = func() string { return "run-1" }
	h.copyFn = func(s string) error {
		f.copied = append(f.copied, s)
		return nil
	}
	return h
}

func (f *fixture) withIdentity() {
	f.git.On("GetRepoName", mock.Anything).Return("demo-repo")
	f.git.On("GetCurrentBranch", mock.Anything).Return("main")
}

func (f *fixture) entries(t *testing.T) []models.LogEntry {
	t.Helper()
	file, err := os.Open(f.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	var out []models.LogEntry
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		var e models.LogEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	return out
}

func TestSuggestionHandler_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("no staged changes ends cleanly", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(models.StagedChange{Diff: "  \n", Files: []string{}}, nil)

		err := f.handler(t, "").Run(ctx, defaultOpts)

		require.NoError(t, err)
		assert.Contains(t, f.out.String(), "No staged changes found")
		f.gen.AssertNotCalled(t, "GenerateSuggestions", mock.Anything, mock.Anything)
		assert.Empty(t, f.entries(t))
	})

	t.Run("git failure is returned", func(t *testing.T) {
		f := newFixture(t)
		gitErr := domainErrors.ErrVCSUnavailable.WithError(errors.New("exit status 128"))
		f.git.On("GetStagedChange", mock.Anything).Return(models.StagedChange{}, gitErr)

		err := f.handler(t, "").Run(ctx, defaultOpts)

		assert.ErrorIs(t, err, domainErrors.ErrVCSUnavailable)
		f.gen.AssertNotCalled(t, "GenerateSuggestions", mock.Anything, mock.Anything)
	})

	t.Run("dry run prints diff and files only", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		opts := defaultOpts
		opts.DryRun = true

		err := f.handler(t, "").Run(ctx, opts)

		require.NoError(t, err)
		out := f.out.String()
		assert.Contains(t, out, "Diff to be sent to openai:")
		assert.Contains(t, out, "+x=1")
		assert.Contains(t, out, "• foo.py")
		f.gen.AssertNotCalled(t, "GenerateSuggestions", mock.Anything, mock.Anything)
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
		assert.Empty(t, f.entries(t))
	})

	t.Run("selecting an index commits that suggestion after confirmation", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, models.SuggestionRequest{
			Diff:  stagedChange.Diff,
			Files: stagedChange.Files,
			Count: 3,
			Model: "gpt-3.5-turbo",
		}).Return(threeSuggestions)
		f.git.On("CreateCommit", mock.Anything, "Initialize x variable").Return(nil).Once()

		err := f.handler(t, "2\ny\n").Run(ctx, defaultOpts)

		require.NoError(t, err)
		out := f.out.String()
		assert.Contains(t, out, "Using model: gpt-3.5-turbo, generating 3 suggestions...")
		assert.Contains(t, out, "1. Add foo")
		assert.Contains(t, out, "2. Initialize x variable")
		assert.Contains(t, out, "3. Create foo module")
		assert.Contains(t, out, `git commit -m "Initialize x variable"`)
		assert.Contains(t, out, "Commit created successfully.")
		assert.NotContains(t, out, "Token usage")
		f.git.AssertExpectations(t)

		entries := f.entries(t)
		require.Len(t, entries, 1)
		e := entries[0]
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, time.Date(2024, 5, 15, 17, 30, 0, 0, time.UTC), e.Timestamp)
		assert.Equal(t, "demo-repo", e.Repo)
		assert.Equal(t, "main", e.Branch)
		assert.Equal(t, []string{"foo.py"}, e.Files)
		assert.Equal(t, stagedChange.Diff, e.Diff)
		assert.Equal(t, threeSuggestions.Messages, e.Suggestions)
		assert.Equal(t, "Initialize x variable", e.ChosenMessage)
		assert.Equal(t, models.LogTokens{Input: 120, Output: 14}, e.Tokens)
		assert.Equal(t, 0.000208, e.CostUSD)
		assert.Equal(t, "gpt-3.5-turbo", e.Model)
		assert.Equal(t, "openai", e.Provider)
	})

	t.Run("non numeric input is a custom message", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)
		f.git.On("CreateCommit", mock.Anything, "fix: handle empty input").Return(nil)

		err := f.handler(t, "fix: handle empty input\nY\n").Run(ctx, defaultOpts)

		require.NoError(t, err)
		entries := f.entries(t)
		require.Len(t, entries, 1)
		assert.Equal(t, "fix: handle empty input", entries[0].ChosenMessage)
	})

	t.Run("empty selection aborts without log or commit", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)

		err := f.handler(t, "  \nRefactor parser\n").Run(ctx, defaultOpts)

		require.NoError(t, err)
		assert.Contains(t, f.out.String(), "No commit message provided. Exiting without committing.")
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
		assert.Empty(t, f.entries(t))
	})

	t.Run("input that is not a listed index is the message as typed", func(t *testing.T) {
		for _, input := range []string{"7", "0", "+2", "2.", "1 2"} {
			t.Run(input, func(t *testing.T) {
				f := newFixture(t)
				f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
				f.withIdentity()
				f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)
				f.git.On("CreateCommit", mock.Anything, input).Return(nil).Once()

				opts := defaultOpts
				opts.AutoCommit = true
				err := f.handler(t, input+"\n").Run(ctx, opts)

				require.NoError(t, err)
				f.git.AssertExpectations(t)
				entries := f.entries(t)
				require.Len(t, entries, 1)
				assert.Equal(t, input, entries[0].ChosenMessage)
			})
		}
	})

	t.Run("padded index still selects the suggestion", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)
		f.git.On("CreateCommit", mock.Anything, "Create foo module").Return(nil).Once()

		opts := defaultOpts
		opts.AutoCommit = true
		err := f.handler(t, " 3 \r\n").Run(ctx, opts)

		require.NoError(t, err)
		f.git.AssertExpectations(t)
	})

	t.Run("closed stdin aborts", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)

		err := f.handler(t, "").Run(ctx, defaultOpts)

		require.NoError(t, err)
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
	})

	t.Run("declining the confirmation keeps the log entry", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)

		err := f.handler(t, "1\nyes\n").Run(ctx, defaultOpts)

		require.NoError(t, err)
		assert.Contains(t, f.out.String(), "Aborted. You can manually commit using the suggested message.")
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
		assert.Len(t, f.entries(t), 1)
	})

	t.Run("auto commit skips the confirmation", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)
		f.git.On("CreateCommit", mock.Anything, "Add foo").Return(nil)

		opts := defaultOpts
		opts.AutoCommit = true
		err := f.handler(t, "1\n").Run(ctx, opts)

		require.NoError(t, err)
		assert.NotContains(t, f.out.String(), "Proceed with commit?")
		f.git.AssertExpectations(t)
	})

	t.Run("commit failure is returned and the log entry persists", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)
		commitErr := domainErrors.ErrCreateCommit.WithContext("stderr", "pre-commit hook failed")
		f.git.On("CreateCommit", mock.Anything, "Add foo").Return(commitErr)

		err := f.handler(t, "1\ny\n").Run(ctx, defaultOpts)

		assert.ErrorIs(t, err, domainErrors.ErrCreateCommit)
		entries := f.entries(t)
		require.Len(t, entries, 1)
		assert.Equal(t, "Add foo", entries[0].ChosenMessage)
	})

	t.Run("no suggestions is a generation failure", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		cause := errors.New("connection refused")
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).
			Return(models.SuggestionResult{Messages: []string{}, Cause: cause})

		err := f.handler(t, "1\ny\n").Run(ctx, defaultOpts)

		assert.ErrorIs(t, err, domainErrors.ErrGenerationFailure)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, f.out.String(), "No suggestions returned from openai. Exiting.")
		assert.Empty(t, f.entries(t))
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
	})

	t.Run("budget refusal is reported as such", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).
			Return(models.SuggestionResult{Messages: []string{}, Cause: domainErrors.ErrBudgetExceeded})

		err := f.handler(t, "").Run(ctx, defaultOpts)

		assert.ErrorIs(t, err, domainErrors.ErrBudgetExceeded)
	})

	t.Run("audit failure stops before the commit", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)

		h := f.handler(t, "1\ny\n")
		h.audit = failingAudit{}
		err := h.Run(ctx, defaultOpts)

		assert.ErrorIs(t, err, domainErrors.ErrAuditWrite)
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
	})

	t.Run("verbose prints token usage and copy uses the clipboard", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)
		f.git.On("CreateCommit", mock.Anything, "Add foo").Return(nil)

		opts := defaultOpts
		opts.Verbose = true
		opts.Copy = true
		opts.AutoCommit = true
		err := f.handler(t, "1\n").Run(ctx, opts)

		require.NoError(t, err)
		out := f.out.String()
		assert.Contains(t, out, "Token usage: Input 120 | Output 14 | Total 134")
		assert.Contains(t, out, "$0.000208 USD")
		assert.Contains(t, out, "Commit message copied to clipboard.")
		assert.Equal(t, []string{"Add foo"}, f.copied)
	})

	t.Run("interrupt during generation leaves no trace", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(threeSuggestions)

		err := f.handler(t, "1\ny\n").Run(runCtx, defaultOpts)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, f.entries(t))
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
	})

	t.Run("interrupt while waiting at the prompt leaves no trace", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.Anything).Return(stagedChange, nil)
		f.withIdentity()
		f.gen.On("GenerateSuggestions", mock.Anything, mock.Anything).Return(threeSuggestions)

		stdin, stdinW := io.Pipe()
		defer func() { _ = stdinW.Close() }()
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		time.AfterFunc(20*time.Millisecond, cancel)

		trans, err := i18n.NewTranslations("en", "")
		require.NoError(t, err)
		h := NewSuggestionHandler(f.git, f.gen, audit.NewLog(f.logPath), trans, stdin, f.out)

		err = h.Run(runCtx, defaultOpts)

		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, f.entries(t))
		f.git.AssertNotCalled(t, "CreateCommit", mock.Anything, mock.Anything)
	})

	t.Run("timeout bounds the git call", func(t *testing.T) {
		f := newFixture(t)
		f.git.On("GetStagedChange", mock.MatchedBy(func(c context.Context) bool {
			_, ok := c.Deadline()
			return ok
		})).Return(models.StagedChange{}, nil)

		opts := defaultOpts
		opts.Timeout = time.Minute
		err := f.handler(t, "").Run(ctx, opts)

		require.NoError(t, err)
		f.git.AssertExpectations(t)
	})
}
