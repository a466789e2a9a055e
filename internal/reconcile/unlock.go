package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"mediasync/internal/layout"
	"mediasync/internal/ledger"
	"mediasync/internal/logging"
	"mediasync/internal/matcher"
	"mediasync/internal/report"
	"mediasync/internal/unlock"
)

// Unlock decrypts every pending source with d, then cleans output/ and
// reconciles the logs the way ModeClean does. Sources that already have a
// derived file, were archived, or previously failed (unless unlock.retry_failed
// is set) are skipped. progress may be nil.
func (w *Workflow) Unlock(ctx context.Context, runID string, d unlock.Decrypter, progress func(index, total int, name string)) (*report.Report, error) {
	ctx = logging.WithRunID(ctx, runID)
	base := logging.WithContext(ctx, w.Logger)
	logger := logging.NewComponentLogger(base, "reconcile")
	working := w.working()
	storage := w.storage()
	if strings.TrimSpace(storage.Root) != "" && storage.Validate() != nil {
		// An unmounted share only hides archived entries; the local
		// completed.log still covers them.
		storage = layout.Storage{}
	}

	rep := report.New(runID, "unlock", working.Root, storage.Root)
	err := w.unlock(ctx, rep, working, storage, d, progress, base)
	rep.Finish()
	w.record(ctx, rep, logger)
	if err != nil {
		return rep, err
	}
	logger.Info("unlock finished",
		logging.Int("unlocked", rep.Unlocked),
		logging.Int("failed", rep.UnlockFailed),
		logging.Int("duplicates_resolved", rep.DuplicatesResolved()),
		logging.Duration("duration", rep.Duration()),
		logging.String(logging.FieldEventType, "unlock_finished"),
	)
	return rep, nil
}

func (w *Workflow) unlock(ctx context.Context, rep *report.Report, working layout.Working, storage layout.Storage, d unlock.Decrypter, progress func(int, int, string), base *slog.Logger) error {
	logger := logging.NewComponentLogger(base, "reconcile")
	if err := working.Validate(); err != nil {
		rep.Add(report.FromError("stat", working.Root, err))
		return err
	}
	lock, err := acquire(working)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release lock", logging.Error(err))
		}
	}()

	if err := w.clean(ctx, rep, working, base); err != nil {
		return err
	}
	sources, derived, err := w.scan(working)
	if err != nil {
		return err
	}

	paths := ledger.PathsFor(working, storage)
	completed, err := paths.LoadCompleted()
	if err != nil {
		return report.Wrap(report.ErrFilesystemOperation, "read", paths.WorkingCompleted, err)
	}
	failed, err := ledger.Load(paths.Failed)
	if err != nil {
		return report.Wrap(report.ErrFilesystemOperation, "read", paths.Failed, err)
	}

	plan := unlock.PlanPending(sources, derived, completed, failed, w.sources(), w.Config.Unlock.RetryFailed)
	logger.Info("unlock plan",
		logging.Int("pending", len(plan.Pending)),
		logging.Int("already_converted", plan.Count(unlock.SkipConverted)),
		logging.Int("already_archived", plan.Count(unlock.SkipArchived)),
		logging.Int("previously_failed", plan.Count(unlock.SkipFailed)),
	)

	runner := &unlock.Runner{
		Working:   working,
		Decrypter: d,
		Allow:     w.sources(),
		Logger:    base,
		Progress:  progress,
	}
	out, err := runner.Run(ctx, plan.Pending)
	rep.Unlocked = len(out.Succeeded)
	rep.UnlockFailed = len(out.Failed)
	rep.DuplicatesDeleted += len(out.Dedupe.Deleted)
	rep.VariantsRenamed += len(out.Dedupe.Renamed)
	rep.Add(out.Dedupe.Problems...)
	rep.Add(out.Problems...)
	if err != nil {
		return err
	}

	if err := w.clean(ctx, rep, working, base); err != nil {
		return err
	}
	if sources, derived, err = w.scan(working); err != nil {
		return err
	}
	rep.Sources = len(sources)
	rep.Derived = len(derived)
	matched := matcher.Match(sources, derived)
	rep.Matched = len(matched.Matches)
	rep.Orphans = append(rep.Orphans, matched.OrphanNames()...)

	rec := &ledger.Reconciler{Working: working, Storage: storage, Sources: w.sources(), Logger: base}
	outcome, err := rec.Reconcile(ctx, sources, derived)
	if err != nil {
		return err
	}
	rep.Processed = outcome.Processed.Len()
	rep.FailedPurged = len(outcome.Purged)
	rep.RemainingFailures = outcome.Failed.Len()
	return nil
}
