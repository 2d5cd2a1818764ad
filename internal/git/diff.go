package git

import (
	"sort"
	"strconv"
	"strings"
)

const diffHeaderPrefix = "diff --git "

// ParseChangedFiles returns the sorted, de-duplicated set of paths named in
// the "diff --git a/X b/Y" headers of a unified diff. Both sides of a rename
// are included.
func ParseChangedFiles(diff string) []string {
	seen := make(map[string]struct{})
	files := make([]string, 0)

	add := func(path string) {
		if path == "" || path == "/dev/null" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, line := range strings.Split(diff, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, diffHeaderPrefix) {
			continue
		}
		a, b := parseDiffGitLine(line)
		add(a)
		add(b)
	}

	sort.Strings(files)
	return files
}

func parseDiffGitLine(line string) (a, b string) {
	rest := strings.TrimPrefix(line, diffHeaderPrefix)

	if strings.HasPrefix(rest, `"`) {
		first, remainder, ok := cutQuoted(rest)
		if !ok {
			return "", ""
		}
		a = first
		remainder = strings.TrimSpace(remainder)
		if strings.HasPrefix(remainder, `"`) {
			b, _, _ = cutQuoted(remainder)
		} else {
			b = remainder
		}
		return trimDiffPath(a), trimDiffPath(b)
	}

	if idx := strings.Index(rest, ` "`); idx >= 0 {
		second, _, ok := cutQuoted(rest[idx+1:])
		if ok {
			return trimDiffPath(rest[:idx]), trimDiffPath(second)
		}
	}

	// Unchanged path: both halves are identical once the side prefix is
	// removed, which also covers names that contain spaces.
	if n := len(rest); n%2 == 1 {
		half := n / 2
		if rest[half] == ' ' && trimDiffPath(rest[:half]) == trimDiffPath(rest[half+1:]) {
			p := trimDiffPath(rest[:half])
			return p, p
		}
	}

	if idx := strings.LastIndex(rest, " b/"); idx >= 0 {
		return trimDiffPath(rest[:idx]), trimDiffPath(rest[idx+1:])
	}

	parts := strings.Fields(rest)
	if len(parts) >= 2 {
		return trimDiffPath(parts[0]), trimDiffPath(parts[1])
	}
	return "", ""
}

// cutQuoted splits a leading C-style quoted path, as git prints names with
// unusual characters, from the rest of s.
func cutQuoted(s string) (unquoted, rest string, ok bool) {
	quoted, err := strconv.QuotedPrefix(s)
	if err != nil {
		return "", s, false
	}
	value, err := strconv.Unquote(quoted)
	if err != nil {
		return "", s, false
	}
	return value, s[len(quoted):], true
}

func trimDiffPath(s string) string {
	if len(s) >= 2 && (s[0] == 'a' || s[0] == 'b') && s[1] == '/' {
		return s[2:]
	}
	return s
}
