package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"mediasync/internal/layout"
	"mediasync/internal/logging"
	"mediasync/internal/normalize"
	"mediasync/internal/report"
)

// Reconciler rewrites and repairs the logs of one working/storage pair.
type Reconciler struct {
	Working layout.Working
	Storage layout.Storage
	Sources layout.Extensions
	Logger  *slog.Logger
}

// Outcome describes one Reconcile pass.
type Outcome struct {
	Processed LogSet
	Failed    LogSet
	Purged    []string
	// Written is true when a log file was rewritten. A pass over an unchanged
	// directory writes nothing.
	Written bool
}

// Reconcile rebuilds processed.log from the current directory contents and
// purges failed.log of items that have since succeeded, either because their
// derived file is in output/ or because they were archived. Files are only
// rewritten when their contents change.
func (r *Reconciler) Reconcile(ctx context.Context, sources []layout.SourceItem, derived []layout.DerivedItem) (Outcome, error) {
	logger := logging.NewComponentLogger(r.Logger, "ledger")
	paths := PathsFor(r.Working, r.Storage)
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	processed := RebuildProcessed(sources, derived)
	previous, present, err := loadFile(paths.Processed)
	if err != nil {
		return Outcome{}, report.Wrap(report.ErrFilesystemOperation, "read", paths.Processed, err)
	}
	out := Outcome{Processed: processed}
	if !present || !previous.Equal(processed) {
		if err := processed.Save(paths.Processed); err != nil {
			return out, report.Wrap(report.ErrFilesystemOperation, "write", paths.Processed, err)
		}
		out.Written = true
	}

	failed, err := Load(paths.Failed)
	if err != nil {
		return out, report.Wrap(report.ErrFilesystemOperation, "read", paths.Failed, err)
	}
	completed, err := paths.LoadCompleted()
	if err != nil {
		return out, report.Wrap(report.ErrFilesystemOperation, "read", "completed.log", err)
	}
	resolved := Stems(processed)
	for stem := range Stems(completed) {
		resolved[stem] = struct{}{}
	}
	kept, purged := PurgeFailed(failed, resolved, r.Sources)
	out.Failed = kept
	out.Purged = purged
	if len(purged) > 0 {
		if err := kept.Save(paths.Failed); err != nil {
			return out, report.Wrap(report.ErrFilesystemOperation, "write", paths.Failed, err)
		}
		out.Written = true
		for _, line := range purged {
			logger.Info("failure cleared",
				logging.String("entry", line),
				logging.String(logging.FieldEventType, "failed_purged"),
			)
		}
	}

	logger.Debug("logs reconciled",
		logging.Int("processed", processed.Len()),
		logging.Int("failed", kept.Len()),
		logging.Int("purged", len(purged)),
		logging.Bool("written", out.Written),
	)
	return out, nil
}

// PartialPair is a source archived to Originals/ whose derived half never
// reached Converted/. Either no completed log records the source, or the
// source was logged by an earlier archive and a later re-archive of the same
// title moved only the source half.
type PartialPair struct {
	Source string `json:"source"`
	// Derived is the matching file still in output/, or empty when none exists.
	Derived string `json:"derived,omitempty"`
}

// RepairResult lists what RepairStorage appended and what it refused to fix.
type RepairResult struct {
	// Repaired were relocated but never logged (crash between move and append).
	Repaired []string
	// Synced were present in only one of the two completed logs.
	Synced       []string
	PartialPairs []PartialPair
	Problems     []report.Problem
}

// RepairStorage rescans Originals/ and Converted/ against the completed logs.
// A relocated pair or archived orphan that was never logged is appended. A
// source whose derived half is not in Converted/ is a partial pair: it is
// reported, never resolved, because moving the derived file now could pair it
// wrongly. A derived file in output/ whose stem matches an Originals/ entry
// and no working-root source is also a partial pair, even when the source
// name is already logged. sources and derived are the current working-root
// and output/ listings.
func (r *Reconciler) RepairStorage(ctx context.Context, sources []layout.SourceItem, derived []layout.DerivedItem) (RepairResult, error) {
	var result RepairResult
	if r.Storage.Root == "" {
		return result, nil
	}
	logger := logging.NewComponentLogger(r.Logger, "ledger")
	paths := PathsFor(r.Working, r.Storage)

	originals, err := layout.ScanOptional(r.Storage.Originals())
	if err != nil {
		return result, err
	}
	converted, err := layout.ScanOptional(r.Storage.Converted())
	if err != nil {
		return result, err
	}

	working, err := Load(paths.WorkingCompleted)
	if err != nil {
		return result, report.Wrap(report.ErrFilesystemOperation, "read", paths.WorkingCompleted, err)
	}
	storage, err := Load(paths.StorageCompleted)
	if err != nil {
		return result, report.Wrap(report.ErrFilesystemOperation, "read", paths.StorageCompleted, err)
	}
	completed := working.Union(storage)

	convertedByStem := stemIndex(converted)
	originalStems := stemIndex(originals)
	outputByStem := map[string]string{}
	for _, d := range derived {
		if _, ok := outputByStem[d.Stem]; !ok {
			outputByStem[d.Stem] = d.Name
		}
	}

	var repair []string
	for _, e := range archived(originals) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if completed.Has(e.Name) {
			continue
		}
		stem := normalize.Name(e.Name)
		if _, ok := convertedByStem[stem]; ok {
			repair = append(repair, e.Name)
			continue
		}
		pair := PartialPair{Source: e.Name, Derived: outputByStem[stem]}
		detail := "derived file not found"
		if pair.Derived != "" {
			detail = fmt.Sprintf("derived file still in output/: %s", pair.Derived)
		}
		r.partial(&result, pair, detail, logger)
	}

	// A logged source can still be half of a later, failed re-archive: its
	// derived file is left in output/ with nothing in the working root to
	// pair with, and would otherwise be treated as an orphan.
	pending := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		pending[src.Stem] = struct{}{}
	}
	for _, e := range archived(originals) {
		if !completed.Has(e.Name) {
			continue
		}
		stem := normalize.Name(e.Name)
		name, inOutput := outputByStem[stem]
		if !inOutput {
			continue
		}
		if _, ok := pending[stem]; ok {
			continue
		}
		r.partial(&result, PartialPair{Source: e.Name, Derived: name},
			fmt.Sprintf("source already archived, derived file still in output/: %s", name), logger)
	}
	for _, e := range archived(converted) {
		if completed.Has(e.Name) {
			continue
		}
		if _, paired := originalStems[normalize.Name(e.Name)]; paired {
			continue
		}
		repair = append(repair, e.Name)
	}

	if len(repair) > 0 {
		if err := paths.AppendCompleted(repair...); err != nil {
			result.Problems = append(result.Problems,
				report.FromError("append", paths.WorkingCompleted, report.Wrap(report.ErrFilesystemOperation, "append", "completed.log", err)))
		} else {
			result.Repaired = repair
			for _, name := range repair {
				completed.Add(name)
				logger.Info("recorded archived file missing from completed log",
					logging.String("file", name),
					logging.String(logging.FieldEventType, "completed_repaired"),
				)
			}
		}
	}

	result.Synced = syncCompleted(paths, working, storage, &result, logger)
	return result, nil
}

func (r *Reconciler) partial(result *RepairResult, pair PartialPair, detail string, logger *slog.Logger) {
	result.PartialPairs = append(result.PartialPairs, pair)
	path := filepath.Join(r.Storage.Originals(), pair.Source)
	result.Problems = append(result.Problems,
		report.FromError("archive", path, report.Wrap(report.ErrPartialPair, "archive", path, errors.New(detail))))
	logging.WarnWithContext(logger, "partial archive pair needs manual reconciliation", "partial_pair_detected",
		logging.String("source", pair.Source),
		logging.String("derived", pair.Derived),
		logging.String(logging.FieldErrorHint, "move the derived file into Converted/ or the source back to the working directory"),
		logging.String(logging.FieldImpact, "pair not recorded as completed"),
		logging.Alert("partial_pair"),
	)
}

// syncCompleted appends to each completed log the entries only the other one
// has, so either root alone reconstructs the archive history.
func syncCompleted(paths Paths, working, storage LogSet, result *RepairResult, logger *slog.Logger) []string {
	var synced []string
	sync := func(target string, from, to LogSet) {
		var missing []string
		for _, item := range from.items {
			if !to.Has(item) {
				missing = append(missing, item)
			}
		}
		if len(missing) == 0 {
			return
		}
		written, err := Append(target, missing...)
		if err != nil {
			result.Problems = append(result.Problems,
				report.FromError("append", target, report.Wrap(report.ErrFilesystemOperation, "append", target, err)))
			return
		}
		synced = append(synced, written...)
		if len(written) > 0 {
			logger.Info("completed logs synchronized",
				logging.String("log", target),
				logging.Int("entries", len(written)),
				logging.String(logging.FieldEventType, "completed_synced"),
			)
		}
	}
	sync(paths.StorageCompleted, working, storage)
	sync(paths.WorkingCompleted, storage, working)
	return synced
}

// archived filters a storage snapshot down to archived media, skipping logs
// and dotfiles such as in-flight cross-device copies.
func archived(snap layout.Snapshot) []layout.Entry {
	var out []layout.Entry
	for _, e := range snap.Entries() {
		if layout.IsHidden(e.Name) || layout.IsLogFile(e.Name) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func stemIndex(snap layout.Snapshot) map[string]struct{} {
	out := map[string]struct{}{}
	for _, e := range archived(snap) {
		out[normalize.Name(e.Name)] = struct{}{}
	}
	return out
}
