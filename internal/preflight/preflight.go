package preflight

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"mediasync/internal/config"
	"mediasync/internal/layout"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll checks every configured directory and the unlock binary. Storage and
// the binary are optional: a plain clean run needs neither.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result
	if cfg.Paths.WorkingDir != "" {
		working := layout.Working{Root: cfg.Paths.WorkingDir}
		results = append(results,
			CheckDirectoryAccess("Working directory", working.Root),
			CheckDirectoryAccess("Output directory", working.Output()),
		)
	}
	if cfg.Paths.StorageDir != "" {
		storage := CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir)
		storage.Optional = true
		results = append(results, storage)
	}
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	unlock := CheckBinary("Unlock binary", cfg.Unlock.Binary)
	unlock.Optional = true
	results = append(results, unlock)
	return results
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := access(path); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckBinary reports whether command resolves on PATH (or as a path).
func CheckBinary(name, command string) Result {
	command = strings.TrimSpace(command)
	if command == "" {
		return Result{Name: name, Detail: "command not configured"}
	}
	resolved, err := exec.LookPath(command)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", command)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// Failed returns the required checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
