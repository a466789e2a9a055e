package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"mediasync/internal/archive"
	"mediasync/internal/config"
	"mediasync/internal/dedupe"
	"mediasync/internal/layout"
	"mediasync/internal/ledger"
	"mediasync/internal/logging"
	"mediasync/internal/matcher"
	"mediasync/internal/report"
)

// Mode selects which stages a run performs.
type Mode string

const (
	// ModeRun cleans, reconciles, and archives when a storage root is set.
	ModeRun Mode = "run"
	// ModeClean cleans and reconciles logs; nothing leaves the working root.
	ModeClean Mode = "clean"
	// ModeArchive is ModeRun with a storage root required.
	ModeArchive Mode = "archive"
)

// ErrNoStorage is returned by ModeArchive when no storage root is configured.
var ErrNoStorage = errors.New("no storage directory configured")

// Recorder persists finished reports. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, r *report.Report) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// Workflow wires the reconciliation stages for one configuration.
type Workflow struct {
	Config *config.Config
	Logger *slog.Logger
	// Mover overrides how files are relocated into storage.
	Mover archive.Mover
	// ConfirmOrphans is asked under the "prompt" orphan policy. A nil func
	// declines.
	ConfirmOrphans func(names []string) (bool, error)
	// History, when set, receives every finished report.
	History Recorder
}

func (w *Workflow) working() layout.Working {
	return layout.Working{Root: w.Config.Paths.WorkingDir}
}

func (w *Workflow) storage() layout.Storage {
	return layout.Storage{Root: w.Config.Paths.StorageDir}
}

func (w *Workflow) sources() layout.Extensions {
	return layout.NewExtensions(w.Config.Sources.Extensions)
}

// Run performs one reconciliation pass. The returned report is non-nil
// whenever the run got far enough to start; a fatal error is returned
// alongside it.
func (w *Workflow) Run(ctx context.Context, mode Mode, runID string) (*report.Report, error) {
	ctx = logging.WithRunID(ctx, runID)
	base := logging.WithContext(ctx, w.Logger)
	logger := logging.NewComponentLogger(base, "reconcile")
	working, storage := w.working(), w.storage()

	archiving := mode != ModeClean && strings.TrimSpace(storage.Root) != ""
	if mode == ModeArchive && !archiving {
		return nil, ErrNoStorage
	}
	if !archiving {
		storage = layout.Storage{}
	}

	rep := report.New(runID, string(mode), working.Root, storage.Root)
	err := w.run(ctx, rep, working, storage, archiving, base)
	rep.Finish()
	w.record(ctx, rep, logger)
	if err != nil {
		return rep, err
	}

	logger.Info("reconciliation finished",
		logging.String("mode", string(mode)),
		logging.Int("duplicates_resolved", rep.DuplicatesResolved()),
		logging.Int("matched", rep.Matched),
		logging.Int("files_moved", rep.FilesMoved()),
		logging.Int("problems", len(rep.Problems)),
		logging.Duration("duration", rep.Duration()),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return rep, nil
}

// run executes the stages in order. base carries the run ID; each stage adds
// its own component name.
func (w *Workflow) run(ctx context.Context, rep *report.Report, working layout.Working, storage layout.Storage, archiving bool, base *slog.Logger) error {
	logger := logging.NewComponentLogger(base, "reconcile")
	if err := working.Validate(); err != nil {
		rep.Add(report.FromError("stat", working.Root, err))
		return err
	}
	if archiving {
		if err := storage.Validate(); err != nil {
			rep.Add(report.FromError("stat", storage.Root, err))
			return err
		}
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
	rep.Sources = len(sources)
	rep.Derived = len(derived)
	matched := matcher.Match(sources, derived)
	rep.Matched = len(matched.Matches)

	rec := &ledger.Reconciler{Working: working, Storage: storage, Sources: w.sources(), Logger: base}
	orphans := matched.Orphans
	if archiving {
		repair, err := rec.RepairStorage(ctx, sources, derived)
		if err != nil {
			return err
		}
		rep.Repaired = len(repair.Repaired) + len(repair.Synced)
		rep.Add(repair.Problems...)
		orphans = withoutStranded(orphans, repair.PartialPairs)

		orphans, err = w.archive(ctx, rep, working, storage, matched.Matches, orphans, base)
		if err != nil {
			return err
		}
		if rep.FilesMoved() > 0 {
			if sources, derived, err = w.scan(working); err != nil {
				return err
			}
		}
	}
	for _, o := range orphans {
		rep.Orphans = append(rep.Orphans, o.Name)
	}

	outcome, err := rec.Reconcile(ctx, sources, derived)
	if err != nil {
		return err
	}
	rep.Processed = outcome.Processed.Len()
	rep.FailedPurged = len(outcome.Purged)
	rep.RemainingFailures = outcome.Failed.Len()
	return nil
}

// clean removes incomplete downloads before resolving duplicates, so a name
// like "X (1).mp3.crdownload" is never mistaken for a variant.
func (w *Workflow) clean(ctx context.Context, rep *report.Report, working layout.Working, base *slog.Logger) error {
	temp, err := dedupe.CleanTemporary(ctx, working.Output(), w.Config.Sources.TempExtensions, base)
	rep.TempRemoved += len(temp.Deleted)
	rep.Add(temp.Problems...)
	if err != nil {
		return err
	}
	resolved, err := dedupe.Resolve(ctx, working.Output(), base)
	rep.DuplicatesDeleted += len(resolved.Deleted)
	rep.VariantsRenamed += len(resolved.Renamed)
	rep.Add(resolved.Problems...)
	return err
}

func (w *Workflow) scan(working layout.Working) ([]layout.SourceItem, []layout.DerivedItem, error) {
	root, err := layout.Scan(working.Root)
	if err != nil {
		return nil, nil, err
	}
	output, err := layout.Scan(working.Output())
	if err != nil {
		return nil, nil, err
	}
	temp := layout.NewExtensions(w.Config.Sources.TempExtensions)
	return layout.Sources(root, w.sources()), layout.Derived(output, temp), nil
}

// archive moves pairs, then orphans when policy allows, and returns the
// orphans left behind.
func (w *Workflow) archive(ctx context.Context, rep *report.Report, working layout.Working, storage layout.Storage, matches []matcher.Pair, orphans []layout.DerivedItem, base *slog.Logger) ([]layout.DerivedItem, error) {
	rep.ArchiveRan = true
	arch := &archive.Archiver{
		Working: working,
		Storage: storage,
		Mover:   w.Mover,
		Ledger:  ledger.PathsFor(working, storage),
		Logger:  base,
	}

	pairs, err := arch.ArchivePairs(ctx, matches)
	rep.PairsMoved += len(pairs.Archived)
	rep.BytesMoved += pairs.BytesMoved
	rep.Add(pairs.Problems...)
	if err != nil {
		return orphans, err
	}
	if len(orphans) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(orphans))
	for _, o := range orphans {
		names = append(names, o.Name)
	}
	move, err := w.orphanDecision(names)
	if err != nil {
		return orphans, fmt.Errorf("confirm orphans: %w", err)
	}
	logging.NewComponentLogger(base, "reconcile").Info("orphan decision",
		logging.Args(logging.DecisionAttrs("orphan_archive", decisionResult(move), w.Config.Archive.Orphans)...)...,
	)
	if !move {
		for _, o := range orphans {
			path := working.DerivedPath(o.Name)
			rep.Add(report.FromError("match", path, report.Wrap(report.ErrOrphan, "match", path, errors.New("no source with a matching stem"))))
		}
		return orphans, nil
	}

	moved, err := arch.ArchiveOrphans(ctx, orphans)
	rep.OrphansMoved += len(moved.Archived)
	rep.BytesMoved += moved.BytesMoved
	rep.Add(moved.Problems...)
	if err != nil {
		return orphans, err
	}
	archived := make(map[string]struct{}, len(moved.Archived))
	for _, name := range moved.Archived {
		archived[name] = struct{}{}
	}
	var left []layout.DerivedItem
	for _, o := range orphans {
		if _, ok := archived[o.Name]; !ok {
			left = append(left, o)
		}
	}
	return left, nil
}

func (w *Workflow) orphanDecision(names []string) (bool, error) {
	switch w.Config.Archive.Orphans {
	case config.OrphanPolicyAlways:
		return true, nil
	case config.OrphanPolicyPrompt:
		if w.ConfirmOrphans == nil {
			return false, nil
		}
		return w.ConfirmOrphans(names)
	default:
		return false, nil
	}
}

func decisionResult(move bool) string {
	if move {
		return "archive"
	}
	return "keep"
}

// withoutStranded drops the derived halves of partial pairs. Archiving them
// as orphans would hide the broken pair.
func withoutStranded(orphans []layout.DerivedItem, partial []ledger.PartialPair) []layout.DerivedItem {
	if len(partial) == 0 {
		return orphans
	}
	stranded := make(map[string]struct{}, len(partial))
	for _, p := range partial {
		if p.Derived != "" {
			stranded[p.Derived] = struct{}{}
		}
	}
	out := orphans[:0:0]
	for _, o := range orphans {
		if _, ok := stranded[o.Name]; !ok {
			out = append(out, o)
		}
	}
	return out
}

func (w *Workflow) record(ctx context.Context, rep *report.Report, logger *slog.Logger) {
	if w.History == nil {
		return
	}
	// The run's own context may already be cancelled; the record still lands.
	ctx = context.WithoutCancel(ctx)
	if err := w.History.Record(ctx, rep); err != nil {
		logging.WarnWithContext(logger, "failed to record run history", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
		return
	}
	if keep := w.Config.History.KeepRecent; keep > 0 {
		if removed, err := w.History.Prune(ctx, keep); err != nil {
			logger.Warn("failed to prune run history", logging.Error(err))
		} else if removed > 0 {
			logger.Debug("pruned run history", logging.Int64("removed", removed))
		}
	}
}
