package report

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a reported condition.
type Kind string

const (
	// KindMissingDirectory: a required directory does not exist. Fatal for the run.
	KindMissingDirectory Kind = "missing_directory"
	// KindFilesystem: one delete/rename/move failed. The item is skipped.
	KindFilesystem Kind = "filesystem_operation_failure"
	// KindPartialPair: the source half of an archive pair is in storage but the
	// derived half is not, and nothing was logged. Needs manual reconciliation.
	KindPartialPair Kind = "partial_pair_failure"
	// KindOrphan: a derived artifact matches no source. Needs an operator decision.
	KindOrphan Kind = "orphan_ambiguity"
	// KindMissingSource: a matched source vanished before it could be archived.
	KindMissingSource Kind = "missing_source"
)

var (
	ErrMissingDirectory    = errors.New("missing directory")
	ErrFilesystemOperation = errors.New("filesystem operation failed")
	ErrPartialPair         = errors.New("partial archive pair")
	ErrOrphan              = errors.New("orphaned derived file")
	ErrMissingSource       = errors.New("source file missing")
)

// Wrap builds an error that names the operation and path while tagging it
// with marker for errors.Is classification. marker should be one of the
// sentinels above.
func Wrap(marker error, op, path string, err error) error {
	if marker == nil {
		marker = ErrFilesystemOperation
	}
	detail := strings.TrimSpace(strings.TrimSpace(op) + " " + strings.TrimSpace(path))
	if detail == "" {
		detail = "filesystem"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to its reported kind. Unclassified errors count as
// filesystem operation failures.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrMissingDirectory):
		return KindMissingDirectory
	case errors.Is(err, ErrPartialPair):
		return KindPartialPair
	case errors.Is(err, ErrOrphan):
		return KindOrphan
	case errors.Is(err, ErrMissingSource):
		return KindMissingSource
	default:
		return KindFilesystem
	}
}
