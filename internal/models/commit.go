package models

import (
	"strings"
	"time"
)

// StagedChange is the staged diff of the repository and the paths it touches.
type StagedChange struct {
	Diff  string
	Files []string
}

// IsEmpty reports whether there is nothing to commit.
func (c StagedChange) IsEmpty() bool {
	return strings.TrimSpace(c.Diff) == ""
}

// SuggestionRequest is what the generator needs to produce commit messages.
type SuggestionRequest struct {
	Diff  string
	Files []string
	Count int
	Model string
}

// SuggestionResult holds the cleaned candidate messages, in the order the
// model returned them, and the tokens the call consumed. An empty Messages
// means generation failed; Cause says why.
type SuggestionResult struct {
	Messages []string
	Usage    TokenUsage
	Cause    error
}

// LogTokens is the token section of an audit record.
type LogTokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// LogEntry is one line of the audit log.
type LogEntry struct {
	RunID         string    `json:"run_id"`
	Timestamp     time.Time `json:"timestamp"`
	Repo          string    `json:"repo"`
	Branch        string    `json:"branch"`
	Files         []string  `json:"files"`
	Diff          string    `json:"diff"`
	Suggestions   []string  `json:"suggestions"`
	ChosenMessage string    `json:"chosen_message"`
	Tokens        LogTokens `json:"tokens"`
	CostUSD       float64   `json:"cost_usd"`
	Model         string    `json:"model"`
	Provider      string    `json:"provider"`
}
