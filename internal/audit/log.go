// Package audit appends one JSON record per run to a JSON Lines file.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thomas-vilte/aicommit/internal/models"
)

const DefaultPath = "logs/commit_log.json"

// Log is an append-only audit trail. Records are never read back.
type Log struct {
	path string
}

func NewLog(path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{path: path}
}

// Append writes entry as a single line. The record and its newline go out in
// one write on an O_APPEND descriptor, so concurrent runs never interleave
// within a line.
func (l *Log) Append(entry models.LogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}
	line = append(line, '\n')

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}

	if _, err := f.Write(line); err != nil {
		_ = f.Close()
		return fmt.Errorf("write log entry: %w", err)
	}
	return f.Close()
}
