package dedupe

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"mediasync/internal/layout"
	"mediasync/internal/logging"
	"mediasync/internal/report"
)

// CleanTemporary removes every file in dir whose extension marks it as an
// incomplete transfer. Matching is case-insensitive.
func CleanTemporary(ctx context.Context, dir string, exts []string, logger *slog.Logger) (Result, error) {
	logger = logging.NewComponentLogger(logger, "dedupe")
	var result Result

	snap, err := layout.Scan(dir)
	if err != nil {
		return result, err
	}
	temp := layout.NewExtensions(exts)
	for _, entry := range snap.Entries() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if !temp.Match(entry.Name) {
			continue
		}
		path := filepath.Join(dir, entry.Name)
		if err := os.Remove(path); err != nil {
			logging.WarnWithContext(logger, "failed to remove incomplete download", "temp_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "the download may still be in progress"),
				logging.String(logging.FieldImpact, "temporary file left in place"),
			)
			result.Problems = append(result.Problems,
				report.FromError("delete", path, report.Wrap(report.ErrFilesystemOperation, "delete", path, err)))
			continue
		}
		result.Deleted = append(result.Deleted, entry.Name)
		logger.Info("removed incomplete download",
			logging.String("file", entry.Name),
			logging.Int64("bytes", entry.Size),
			logging.String(logging.FieldEventType, "temp_cleanup"),
		)
	}
	return result, nil
}
