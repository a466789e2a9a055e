// Package layout describes the on-disk contract shared by every step: the
// working root with its output/ directory and rewritable logs, and the storage
// root with Originals/, Converted/ and its own completed log.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mediasync/internal/report"
)

const (
	OutputDirName    = "output"
	OriginalsDirName = "Originals"
	ConvertedDirName = "Converted"

	ProcessedLogName = "processed.log"
	FailedLogName    = "failed.log"
	CompletedLogName = "completed.log"

	// LockFileName lives in the working root. Its extension is never
	// allow-listed, so it is invisible to source scans.
	LockFileName = ".mediasync.lock"
)

// Working is a working root: source files directly inside, derived files and
// logs under output/.
type Working struct {
	Root string
}

func (w Working) Output() string       { return filepath.Join(w.Root, OutputDirName) }
func (w Working) ProcessedLog() string { return filepath.Join(w.Output(), ProcessedLogName) }
func (w Working) FailedLog() string    { return filepath.Join(w.Output(), FailedLogName) }
func (w Working) CompletedLog() string { return filepath.Join(w.Output(), CompletedLogName) }
func (w Working) LockPath() string     { return filepath.Join(w.Root, LockFileName) }

// SourcePath returns the path of a source file by name.
func (w Working) SourcePath(name string) string { return filepath.Join(w.Root, name) }

// DerivedPath returns the path of a derived file by name.
func (w Working) DerivedPath(name string) string { return filepath.Join(w.Output(), name) }

// Validate checks that the working root and its output/ directory exist.
func (w Working) Validate() error {
	if err := RequireDir(w.Root); err != nil {
		return err
	}
	return RequireDir(w.Output())
}

// Storage is a long-term storage root.
type Storage struct {
	Root string
}

func (s Storage) Originals() string    { return filepath.Join(s.Root, OriginalsDirName) }
func (s Storage) Converted() string    { return filepath.Join(s.Root, ConvertedDirName) }
func (s Storage) CompletedLog() string { return filepath.Join(s.Root, CompletedLogName) }

// Validate checks that the storage root exists.
func (s Storage) Validate() error {
	return RequireDir(s.Root)
}

// Ensure creates Originals/ and Converted/ under an existing storage root.
// A missing root is reported rather than created, since it usually means an
// unmounted network share.
func (s Storage) Ensure() error {
	if err := s.Validate(); err != nil {
		return err
	}
	for _, dir := range []string{s.Originals(), s.Converted()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return report.Wrap(report.ErrFilesystemOperation, "mkdir", dir, err)
		}
	}
	return nil
}

// RequireDir returns an ErrMissingDirectory error when path is empty, absent,
// or not a directory.
func RequireDir(path string) error {
	if strings.TrimSpace(path) == "" {
		return report.Wrap(report.ErrMissingDirectory, "stat", "(unset)", errors.New("directory not configured"))
	}
	info, err := os.Stat(path)
	if err != nil {
		return report.Wrap(report.ErrMissingDirectory, "stat", path, err)
	}
	if !info.IsDir() {
		return report.Wrap(report.ErrMissingDirectory, "stat", path, fmt.Errorf("not a directory"))
	}
	return nil
}
