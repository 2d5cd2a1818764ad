package git

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/thomas-vilte/aicommit/internal/errors"
	"github.com/thomas-vilte/aicommit/internal/logger"
	"github.com/thomas-vilte/aicommit/internal/models"
)

type GitService struct {
	dir string
}

func NewGitService() *GitService {
	return &GitService{}
}

// run executes git with args and returns stdout. On failure the returned
// string is the trimmed stderr so callers can attach it to their error.
func (s *GitService) run(ctx context.Context, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = s.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug(ctx, "running git", "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return "", strings.TrimSpace(stderr.String()), err
	}
	return stdout.String(), "", nil
}

// GetStagedDiff returns the output of `git diff --cached`, untouched.
func (s *GitService) GetStagedDiff(ctx context.Context) (string, error) {
	out, stderr, err := s.run(ctx, "diff", "--cached")
	if err != nil {
		return "", errors.ErrVCSUnavailable.WithError(err).WithContext("stderr", stderr)
	}
	return out, nil
}

// GetStagedFiles lists staged paths with `git diff --cached --name-only`.
func (s *GitService) GetStagedFiles(ctx context.Context) ([]string, error) {
	out, stderr, err := s.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, errors.ErrGetChangedFiles.WithError(err).WithContext("stderr", stderr)
	}

	seen := make(map[string]struct{})
	files := make([]string, 0)
	for _, line := range strings.Split(out, "\n") {
		path := strings.TrimSpace(line)
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// GetStagedChange reads the staged diff and derives the touched files from
// its headers, falling back to the index listing when none can be parsed.
func (s *GitService) GetStagedChange(ctx context.Context) (models.StagedChange, error) {
	diff, err := s.GetStagedDiff(ctx)
	if err != nil {
		return models.StagedChange{}, err
	}

	change := models.StagedChange{Diff: diff}
	if change.IsEmpty() {
		return change, nil
	}

	change.Files = ParseChangedFiles(diff)
	if len(change.Files) == 0 {
		files, err := s.GetStagedFiles(ctx)
		if err != nil {
			return models.StagedChange{}, err
		}
		change.Files = files
	}

	logger.Debug(ctx, "staged change loaded",
		"count", len(change.Files),
		"size", len(diff))

	return change, nil
}

// GetRepoName returns the base name of the work tree root, or "" when it
// cannot be determined.
func (s *GitService) GetRepoName(ctx context.Context) string {
	out, _, err := s.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		logger.Debug(ctx, "could not resolve repository root", "error", err)
		return ""
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return ""
	}
	return filepath.Base(root)
}

// GetCurrentBranch returns the checked-out branch, or "" when it cannot be
// determined.
func (s *GitService) GetCurrentBranch(ctx context.Context) string {
	out, _, err := s.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		logger.Debug(ctx, "could not resolve current branch", "error", err)
		return ""
	}
	return strings.TrimSpace(out)
}

// CreateCommit runs `git commit -m message` with the message passed as a
// single argument.
func (s *GitService) CreateCommit(ctx context.Context, message string) error {
	_, stderr, err := s.run(ctx, "commit", "-m", message)
	if err != nil {
		return errors.ErrCreateCommit.WithError(err).WithContext("stderr", stderr)
	}
	return nil
}
