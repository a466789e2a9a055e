package logs

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"mediasync/internal/logging"
)

// ErrNoLogs reports that no run log matched.
var ErrNoLogs = errors.New("no run logs found")

// RunsDir is the directory holding per-run logs for logDir.
func RunsDir(logDir string) string {
	return filepath.Join(logDir, "runs")
}

// Find returns the run log for id, which may be a full run id or a prefix of
// its short form. An empty id selects the newest log.
func Find(logDir, id string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(RunsDir(logDir), logging.RunLogPattern))
	if err != nil {
		return "", fmt.Errorf("list run logs: %w", err)
	}
	// Names start with a sortable timestamp.
	sort.Strings(matches)
	id = strings.TrimSpace(id)
	if id == "" {
		if len(matches) == 0 {
			return "", ErrNoLogs
		}
		return matches[len(matches)-1], nil
	}

	var found []string
	for _, path := range matches {
		short := runSuffix(filepath.Base(path))
		if short == "" {
			continue
		}
		if strings.HasPrefix(short, id) || strings.HasPrefix(id, short) {
			found = append(found, path)
		}
	}
	switch len(found) {
	case 0:
		return "", fmt.Errorf("%w for run %q", ErrNoLogs, id)
	case 1:
		return found[0], nil
	default:
		return "", fmt.Errorf("run id %q matches %d logs", id, len(found))
	}
}

// runSuffix extracts the short run id from run-YYYYMMDD-HHMMSS-<id>.log.
func runSuffix(name string) string {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "run-"), ".log")
	parts := strings.SplitN(name, "-", 3)
	if len(parts) != 3 {
		return ""
	}
	return parts[2]
}
