// Package archive relocates matched (source, derived) pairs and confirmed
// orphans into the storage root and records them in the completed logs.
//
// A pair is logged only after both halves have moved. If the derived move
// fails after the source moved, the pair is left unlogged and reported as a
// partial pair; it is never retried automatically, since a retry could move
// a file twice.
package archive

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"mediasync/internal/fileutil"
	"mediasync/internal/layout"
	"mediasync/internal/logging"
	"mediasync/internal/matcher"
	"mediasync/internal/report"
)

// Mover relocates one file, replacing an existing destination.
type Mover interface {
	Move(src, dst string) error
}

// MoverFunc adapts a function to Mover.
type MoverFunc func(src, dst string) error

func (f MoverFunc) Move(src, dst string) error { return f(src, dst) }

// DefaultMover renames, falling back to a verified copy across filesystems.
var DefaultMover Mover = MoverFunc(fileutil.Move)

// Ledger records archived names.
type Ledger interface {
	AppendCompleted(names ...string) error
}

// Archiver moves files from a working root into a storage root.
type Archiver struct {
	Working layout.Working
	Storage layout.Storage
	Mover   Mover
	Ledger  Ledger
	Logger  *slog.Logger
}

// Result is the outcome of one archive call.
type Result struct {
	// Archived lists the names written to the completed logs.
	Archived   []string
	FilesMoved int
	BytesMoved int64
	Problems   []report.Problem
}

func (a *Archiver) mover() Mover {
	if a.Mover == nil {
		return DefaultMover
	}
	return a.Mover
}

func (a *Archiver) logger() *slog.Logger {
	return logging.NewComponentLogger(a.Logger, "archive")
}

// ArchivePairs moves every matched pair. Per-pair failures are recorded and
// the batch continues. Storage subdirectories are created on demand; a missing
// storage root is returned as an error before anything moves.
func (a *Archiver) ArchivePairs(ctx context.Context, matches []matcher.Pair) (Result, error) {
	var result Result
	if len(matches) == 0 {
		return result, nil
	}
	if err := a.Storage.Ensure(); err != nil {
		return result, err
	}
	logger := a.logger()
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		a.archivePair(m, &result, logger)
	}
	return result, nil
}

func (a *Archiver) archivePair(m matcher.Pair, result *Result, logger *slog.Logger) {
	src := a.Working.SourcePath(m.Source.Name)
	derived := a.Working.DerivedPath(m.Derived.Name)

	info, err := os.Stat(src)
	if err != nil {
		marker := report.ErrFilesystemOperation
		if errors.Is(err, fs.ErrNotExist) {
			marker = report.ErrMissingSource
		}
		a.fail(result, logger, "stat", src, report.Wrap(marker, "stat", src, err), "pair skipped")
		return
	}

	srcDst := filepath.Join(a.Storage.Originals(), m.Source.Name)
	if err := a.mover().Move(src, srcDst); err != nil {
		a.fail(result, logger, "move", src, report.Wrap(report.ErrFilesystemOperation, "move", src, err), "pair skipped")
		return
	}
	result.FilesMoved++
	result.BytesMoved += info.Size()

	derivedDst := filepath.Join(a.Storage.Converted(), m.Derived.Name)
	if err := a.mover().Move(derived, derivedDst); err != nil {
		a.fail(result, logger, "move", derived, report.Wrap(report.ErrPartialPair, "move", derived, err),
			"source archived without its derived file; pair not logged")
		return
	}
	result.FilesMoved++
	result.BytesMoved += m.Derived.Size

	if err := a.Ledger.AppendCompleted(m.Source.Name); err != nil {
		// Both files are in storage; the next run's storage rescan logs them.
		a.fail(result, logger, "append", m.Source.Name, report.Wrap(report.ErrFilesystemOperation, "append", "completed.log", err),
			"completed entry deferred to the next run")
		return
	}
	result.Archived = append(result.Archived, m.Source.Name)
	logger.Info("pair archived",
		logging.String("source", m.Source.Name),
		logging.String("derived", m.Derived.Name),
		logging.Int64("bytes", info.Size()+m.Derived.Size),
		logging.String(logging.FieldEventType, "pair_archived"),
	)
}

// ArchiveOrphans moves derived files with no source into Converted/ and logs
// them under their own names. Callers must have confirmed with the operator.
func (a *Archiver) ArchiveOrphans(ctx context.Context, orphans []layout.DerivedItem) (Result, error) {
	var result Result
	if len(orphans) == 0 {
		return result, nil
	}
	if err := a.Storage.Ensure(); err != nil {
		return result, err
	}
	logger := a.logger()
	for _, o := range orphans {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		src := a.Working.DerivedPath(o.Name)
		dst := filepath.Join(a.Storage.Converted(), o.Name)
		if err := a.mover().Move(src, dst); err != nil {
			a.fail(&result, logger, "move", src, report.Wrap(report.ErrFilesystemOperation, "move", src, err), "orphan left in output/")
			continue
		}
		result.FilesMoved++
		result.BytesMoved += o.Size
		if err := a.Ledger.AppendCompleted(o.Name); err != nil {
			a.fail(&result, logger, "append", o.Name, report.Wrap(report.ErrFilesystemOperation, "append", "completed.log", err),
				"completed entry deferred to the next run")
			continue
		}
		result.Archived = append(result.Archived, o.Name)
		logger.Info("orphan archived",
			logging.String("derived", o.Name),
			logging.Int64("bytes", o.Size),
			logging.String(logging.FieldEventType, "orphan_archived"),
		)
	}
	return result, nil
}

func (a *Archiver) fail(result *Result, logger *slog.Logger, op, path string, err error, impact string) {
	problem := report.FromError(op, path, err)
	result.Problems = append(result.Problems, problem)
	attrs := []logging.Attr{
		logging.String("path", path),
		logging.String("kind", string(problem.Kind)),
		logging.Error(err),
		logging.String(logging.FieldImpact, impact),
	}
	if problem.Kind == report.KindPartialPair {
		attrs = append(attrs,
			logging.Alert("partial_pair"),
			logging.String(logging.FieldErrorHint, "move the derived file into Converted/ by hand, then rerun"),
		)
	}
	logging.WarnWithContext(logger, "archive step failed", "archive_failed", attrs...)
}
