package suggests_commits

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thomas-vilte/aicommit/internal/ai"
	"github.com/thomas-vilte/aicommit/internal/config"
	domainErrors "github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/i18n"
	"github.com/thomas-vilte/aicommit/internal/models"
	"github.com/thomas-vilte/aicommit/internal/services/cost"
)

func init() {
	color.NoColor = true
}

type fakeGit struct {
	change    models.StagedChange
	committed []string
}

func (g *fakeGit) GetStagedChange(context.Context) (models.StagedChange, error) {
	return g.change, nil
}

func (g *fakeGit) GetRepoName(context.Context) string { return "demo-repo" }

func (g *fakeGit) GetCurrentBranch(context.Context) string { return "main" }

func (g *fakeGit) CreateCommit(_ context.Context, message string) error {
	g.committed = append(g.committed, message)
	return nil
}

type fakeTextGenerator struct {
	name     string
	requests []ai.GenerationRequest
	closed   bool
}

func (g *fakeTextGenerator) Generate(_ context.Context, req ai.GenerationRequest) (ai.GenerationResponse, error) {
	g.requests = append(g.requests, req)
	return ai.GenerationResponse{
		Text:  "1. Add foo\n2. Initialize x variable\n3. Something else",
		Usage: models.TokenUsage{InputTokens: 1000, OutputTokens: 500},
	}, nil
}

func (g *fakeTextGenerator) ProviderName() string { return g.name }

func (g *fakeTextGenerator) Close() error {
	g.closed = true
	return nil
}

type fakeLedger struct {
	saved  []cost.ActivityRecord
	closed bool
}

func (l *fakeLedger) CheckBudget(context.Context, float64) (*cost.BudgetStatus, error) {
	return &cost.BudgetStatus{}, nil
}

func (l *fakeLedger) SaveActivity(_ context.Context, record cost.ActivityRecord) error {
	l.saved = append(l.saved, record)
	return nil
}

func (l *fakeLedger) Close() error {
	l.closed = true
	return nil
}

type testEnv struct {
	cfg       *config.Config
	trans     *i18n.Translations
	git       *fakeGit
	generator *fakeTextGenerator
	ledger    *fakeLedger
	factoryFn GeneratorFactory
	built     []string
	out       *bytes.Buffer
	logPath   string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	trans, err := i18n.NewTranslations("en", "")
	require.NoError(t, err)

	env := &testEnv{
		cfg:   config.Default(home),
		trans: trans,
		git: &fakeGit{change: models.StagedChange{
			Diff:  "diff --git a/foo.py b/foo.py\n+x=1\n",
			Files: []string{"foo.py"},
		}},
		ledger:  &fakeLedger{},
		out:     new(bytes.Buffer),
		logPath: filepath.Join(home, "logs", "commit_log.json"),
	}
	env.factoryFn = func(_ context.Context, _ *config.Config, provider string) (ai.TextGenerator, error) {
		env.built = append(env.built, provider)
		env.generator = &fakeTextGenerator{name: provider}
		return env.generator, nil
	}
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) error {
	t.Helper()
	opener := func(string, float64) (Ledger, error) { return e.ledger, nil }
	factory := NewSuggestCommandFactory(e.git, e.factoryFn, opener, strings.NewReader(stdin), e.out)
	cmd := factory.CreateCommand(e.trans, e.cfg)

	argv := append([]string{"suggest", "--log-path", e.logPath}, args...)
	return cmd.Run(context.Background(), argv)
}

func TestSuggestCommand(t *testing.T) {
	t.Run("closes the provider client and the ledger after the run", func(t *testing.T) {
		env := setupTestEnv(t)

		err := env.run(t, "1\n", "--auto-commit")

		require.NoError(t, err)
		require.NotNil(t, env.generator)
		assert.True(t, env.generator.closed)
		assert.True(t, env.ledger.closed)
	})

	t.Run("generates, logs and commits the chosen suggestion", func(t *testing.T) {
		env := setupTestEnv(t)

		err := env.run(t, "2\n", "-n", "2", "--auto-commit")

		require.NoError(t, err)
		assert.Equal(t, []string{"Initialize x variable"}, env.git.committed)
		assert.Equal(t, []string{"openai"}, env.built)

		require.Len(t, env.generator.requests, 1)
		req := env.generator.requests[0]
		assert.Equal(t, "gpt-3.5-turbo", req.Model)
		assert.Equal(t, 200, req.MaxTokens)
		assert.Equal(t, float32(0), req.Temperature)
		assert.Contains(t, req.Prompt, "exactly 2")

		require.Len(t, env.ledger.saved, 1)
		assert.Equal(t, 1000, env.ledger.saved[0].TokensInput)
		assert.InDelta(t, 0.0025, env.ledger.saved[0].CostUSD, 1e-9)
		assert.True(t, env.ledger.closed)

		data, err := os.ReadFile(env.logPath)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"chosen_message":"Initialize x variable"`)
		assert.Contains(t, string(data), `"cost_usd":0.0025`)
		assert.Equal(t, 1, strings.Count(string(data), "\n"))
	})

	t.Run("flags select provider and model", func(t *testing.T) {
		env := setupTestEnv(t)

		err := env.run(t, "1\n", "-p", "ollama", "-m", "mistral", "--auto-commit", "-l", "es")

		require.NoError(t, err)
		assert.Equal(t, []string{"ollama"}, env.built)
		assert.Equal(t, "mistral", env.generator.requests[0].Model)
		assert.Contains(t, env.generator.requests[0].System, "español")
		assert.Contains(t, env.out.String(), "Commit creado con éxito.")
	})

	t.Run("provider default model when the configured one belongs to another provider", func(t *testing.T) {
		env := setupTestEnv(t)
		env.cfg.Model = "gpt-4o"

		err := env.run(t, "1\n", "-p", "gemini", "--auto-commit")

		require.NoError(t, err)
		assert.Equal(t, "gemini-2.5-flash", env.generator.requests[0].Model)
	})

	t.Run("dry run never builds a generator", func(t *testing.T) {
		env := setupTestEnv(t)

		err := env.run(t, "", "--dry-run")

		require.NoError(t, err)
		assert.Empty(t, env.built)
		assert.Empty(t, env.git.committed)
		assert.NoFileExists(t, env.logPath)
		assert.Contains(t, env.out.String(), "+x=1")
	})

	t.Run("missing credentials fail before any git work", func(t *testing.T) {
		env := setupTestEnv(t)
		env.factoryFn = func(context.Context, *config.Config, string) (ai.TextGenerator, error) {
			return nil, domainErrors.ErrAPIKeyMissing
		}

		err := env.run(t, "1\n")

		assert.ErrorIs(t, err, domainErrors.ErrAPIKeyMissing)
		assert.Empty(t, env.out.String())
	})

	t.Run("rejects an out of range count", func(t *testing.T) {
		for _, n := range []string{"0", "11"} {
			env := setupTestEnv(t)

			err := env.run(t, "", "-n", n)

			assert.ErrorIs(t, err, domainErrors.ErrInvalidSuggestionCount)
			assert.Empty(t, env.built)
		}
	})

	t.Run("rejects an unknown provider", func(t *testing.T) {
		env := setupTestEnv(t)

		err := env.run(t, "", "--provider", "anthropic")

		assert.ErrorIs(t, err, domainErrors.ErrUnsupportedProvider)
	})

	t.Run("a broken ledger does not block the run", func(t *testing.T) {
		env := setupTestEnv(t)
		opener := func(string, float64) (Ledger, error) { return nil, errors.New("locked") }
		factory := NewSuggestCommandFactory(env.git, env.factoryFn, opener, strings.NewReader("1\n"), env.out)
		cmd := factory.CreateCommand(env.trans, env.cfg)

		err := cmd.Run(context.Background(), []string{"suggest", "--log-path", env.logPath, "--auto-commit"})

		require.NoError(t, err)
		assert.Equal(t, []string{"Add foo"}, env.git.committed)
	})

	t.Run("disabled ledger is never opened", func(t *testing.T) {
		env := setupTestEnv(t)
		env.cfg.UsageDB = ""

		err := env.run(t, "1\n", "--auto-commit")

		require.NoError(t, err)
		assert.Empty(t, env.ledger.saved)
		assert.False(t, env.ledger.closed)
	})
}

func TestOpenLedger(t *testing.T) {
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "usage.db"), 1)
	require.NoError(t, err)
	assert.NoError(t, ledger.Close())
}

func TestResolveModel(t *testing.T) {
	cfg := config.Default(t.TempDir())
	assert.Equal(t, "gpt-3.5-turbo", resolveModel(cfg, "openai", ""))
	assert.Equal(t, "gpt-4o", resolveModel(cfg, "openai", "gpt-4o"))
	assert.Equal(t, "llama3", resolveModel(cfg, "ollama", ""))

	cfg.Model = "gpt-4o-mini"
	assert.Equal(t, "gpt-4o-mini", resolveModel(cfg, "openai", ""))
	assert.Equal(t, "gemini-2.5-flash", resolveModel(cfg, "gemini", ""))
}
