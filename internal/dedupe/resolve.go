package dedupe

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"mediasync/internal/layout"
	"mediasync/internal/logging"
	"mediasync/internal/report"
)

// maxPasses bounds re-planning. Each pass removes at least one nesting level,
// so real directories settle in two or three.
const maxPasses = 16

// Rename records one successful rename.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Result is the outcome of a resolver or cleanup pass over one directory.
type Result struct {
	Deleted  []string
	Renamed  []Rename
	Problems []report.Problem
}

// Changed is the number of successful actions.
func (r Result) Changed() int {
	return len(r.Deleted) + len(r.Renamed)
}

// Merge appends other's actions and problems to r.
func (r *Result) Merge(other Result) {
	r.Deleted = append(r.Deleted, other.Deleted...)
	r.Renamed = append(r.Renamed, other.Renamed...)
	r.Problems = append(r.Problems, other.Problems...)
}

// Resolve collapses every numbered variant group in dir. Only a missing or
// unreadable directory and cancellation are returned as errors; per-file
// failures land in Result.Problems.
func Resolve(ctx context.Context, dir string, logger *slog.Logger) (Result, error) {
	return resolve(ctx, dir, Full, logger)
}

// QuickResolve is the lightweight pass run after each unit of external
// processing: only groups whose sibling already exists are touched.
func QuickResolve(ctx context.Context, dir string, logger *slog.Logger) (Result, error) {
	return resolve(ctx, dir, Quick, logger)
}

func resolve(ctx context.Context, dir string, mode Mode, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "dedupe")
	var result Result
	failed := map[string]struct{}{}
	for range maxPasses {
		snap, err := layout.Scan(dir)
		if err != nil {
			return result, err
		}
		actions := withoutFailed(Plan(snap, mode), failed)
		if len(actions) == 0 {
			return result, nil
		}
		pass, err := Apply(ctx, dir, actions, logger)
		result.Merge(pass)
		if err != nil {
			return result, err
		}
		if pass.Changed() == 0 {
			return result, nil
		}
		for _, p := range pass.Problems {
			failed[filepath.Base(p.Path)] = struct{}{}
		}
	}
	return result, nil
}

// withoutFailed drops actions that touch a name which already failed in an
// earlier pass, so one stuck file is reported once.
func withoutFailed(actions []Action, failed map[string]struct{}) []Action {
	if len(failed) == 0 {
		return actions
	}
	kept := actions[:0]
	for _, a := range actions {
		if _, ok := failed[a.Name]; ok {
			continue
		}
		if _, ok := failed[a.Target]; ok && a.Target != "" {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

// Apply performs actions in order. A rename whose target exists at apply time
// is skipped and reported rather than clobbering, which also covers a failed
// sibling delete earlier in the same group.
func Apply(ctx context.Context, dir string, actions []Action, logger *slog.Logger) (Result, error) {
	var result Result
	for _, action := range actions {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		path := filepath.Join(dir, action.Name)
		switch action.Op {
		case OpDelete:
			if err := os.Remove(path); err != nil {
				result.Problems = append(result.Problems, failure(logger, "delete", path, err))
				continue
			}
			result.Deleted = append(result.Deleted, action.Name)
			attrs := append([]logging.Attr{
				logging.String("file", action.Name),
				logging.String(logging.FieldDir, dir),
				logging.String(logging.FieldEventType, "duplicate_deleted"),
			}, logging.DecisionAttrs("duplicate_resolution", string(action.Op), action.Reason)...)
			logger.Info("duplicate removed", logging.Args(attrs...)...)
		case OpRename:
			target := filepath.Join(dir, action.Target)
			if _, err := os.Lstat(target); err == nil {
				result.Problems = append(result.Problems, failure(logger, "rename", path, &fs.PathError{Op: "rename", Path: target, Err: fs.ErrExist}))
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				result.Problems = append(result.Problems, failure(logger, "rename", path, err))
				continue
			}
			if err := os.Rename(path, target); err != nil {
				result.Problems = append(result.Problems, failure(logger, "rename", path, err))
				continue
			}
			result.Renamed = append(result.Renamed, Rename{From: action.Name, To: action.Target})
			logger.Info("variant renamed over sibling",
				logging.String("file", action.Name),
				logging.String("target", action.Target),
				logging.String(logging.FieldDir, dir),
				logging.String(logging.FieldEventType, "duplicate_renamed"),
			)
		}
	}
	return result, nil
}

func failure(logger *slog.Logger, op, path string, err error) report.Problem {
	wrapped := report.Wrap(report.ErrFilesystemOperation, op, path, err)
	logging.WarnWithContext(logger, "duplicate resolution step failed", "dedupe_failed",
		logging.String("path", path),
		logging.String("op", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check whether another program holds the file open"),
		logging.String(logging.FieldImpact, "duplicate left in place until the next run"),
	)
	return report.FromError(op, path, wrapped)
}
