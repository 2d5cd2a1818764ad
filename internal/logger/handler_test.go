package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func init() {
	color.NoColor = true
}

func TestPrettyHandler_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	log.Debug("hidden")
	log.Info("generating suggestions", "model", "gpt-3.5-turbo", "count", 3)
	log.Warn("ledger unavailable")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO]  generating suggestions model=gpt-3.5-turbo count=3")
	assert.Contains(t, out, "[WARN]  ledger unavailable")
}

func TestPrettyHandler_DefaultLevelIsWarn(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))

	log.Info("not shown")
	log.Error("shown")

	assert.NotContains(t, buf.String(), "not shown")
	assert.Contains(t, buf.String(), "[ERROR] shown")
}

func TestPrettyHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("run_id", "abc").WithGroup("git").Debug("running", "args", "diff --cached")

	assert.Contains(t, buf.String(), "run_id=abc")
	assert.Contains(t, buf.String(), "git.args=diff --cached")
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	custom := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithLogger(context.Background(), custom)

	Error(ctx, "commit failed", errors.New("exit status 1"), "provider", "openai")

	assert.Same(t, custom, FromContext(ctx))
	assert.Contains(t, buf.String(), "commit failed provider=openai error=exit status 1")
	assert.Equal(t, slog.Default(), FromContext(context.Background()))
}

func TestInitializeWithWriter(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitializeWithWriter(&buf, false, true)

	slog.Info("verbose on")
	slog.Debug("debug off")

	assert.Contains(t, buf.String(), "verbose on")
	assert.NotContains(t, buf.String(), "debug off")
}
