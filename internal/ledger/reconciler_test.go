package ledger_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mediasync/internal/layout"
	"mediasync/internal/ledger"
	"mediasync/internal/logging"
	"mediasync/internal/report"
	"mediasync/internal/testsupport"
)

type fixture struct {
	working layout.Working
	storage layout.Storage
	rec     *ledger.Reconciler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	base := t.TempDir()
	w := layout.Working{Root: filepath.Join(base, "work")}
	s := layout.Storage{Root: filepath.Join(base, "nas")}
	for _, dir := range []string{w.Output(), s.Originals(), s.Converted()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return fixture{
		working: w,
		storage: s,
		rec: &ledger.Reconciler{
			Working: w,
			Storage: s,
			Sources: layout.NewExtensions([]string{".ncm", ".kgm"}),
			Logger:  logging.NewNop(),
		},
	}
}

func (f fixture) scan(t *testing.T) ([]layout.SourceItem, []layout.DerivedItem) {
	t.Helper()
	root, err := layout.Scan(f.working.Root)
	if err != nil {
		t.Fatal(err)
	}
	out, err := layout.Scan(f.working.Output())
	if err != nil {
		t.Fatal(err)
	}
	return layout.Sources(root, f.rec.Sources), layout.Derived(out, layout.NewExtensions([]string{".tmp"}))
}

func TestReconcilePurgesFailedEntry(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, f.working.SourcePath("X.ncm"), 10)
	testsupport.WriteFile(t, f.working.SourcePath("Y.ncm"), 10)
	testsupport.WriteFile(t, f.working.DerivedPath("X.mp3"), 10)
	testsupport.WriteLines(t, f.working.FailedLog(), "X.ncm (timeout)", "Y.ncm (bad header)")
	testsupport.WriteLines(t, f.working.ProcessedLog(), "stale.ncm")

	sources, derived := f.scan(t)
	out, err := f.rec.Reconcile(context.Background(), sources, derived)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if diff := cmp.Diff([]string{"X.ncm (timeout)"}, out.Purged); diff != "" {
		t.Fatalf("purged mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"X.ncm"}, testsupport.ReadLines(t, f.working.ProcessedLog())); diff != "" {
		t.Fatalf("processed.log mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Y.ncm (bad header)"}, testsupport.ReadLines(t, f.working.FailedLog())); diff != "" {
		t.Fatalf("failed.log mismatch (-want +got):\n%s", diff)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, f.working.SourcePath("A.ncm"), 10)
	testsupport.WriteFile(t, f.working.DerivedPath("A.mp3"), 10)
	testsupport.WriteLines(t, f.working.FailedLog(), "A.ncm (timeout)", "B.ncm")

	sources, derived := f.scan(t)
	first, err := f.rec.Reconcile(context.Background(), sources, derived)
	if err != nil {
		t.Fatalf("first Reconcile: %v", err)
	}
	if !first.Written {
		t.Fatal("expected first pass to write logs")
	}
	processedInfo, _ := os.Stat(f.working.ProcessedLog())

	for range 3 {
		again, err := f.rec.Reconcile(context.Background(), sources, derived)
		if err != nil {
			t.Fatalf("Reconcile: %v", err)
		}
		if again.Written || len(again.Purged) != 0 {
			t.Fatalf("expected no-op pass, got %+v", again)
		}
	}
	after, _ := os.Stat(f.working.ProcessedLog())
	if !after.ModTime().Equal(processedInfo.ModTime()) {
		t.Fatal("processed.log rewritten by a no-op pass")
	}
}

func TestReconcileCreatesMissingProcessedLog(t *testing.T) {
	f := newFixture(t)

	out, err := f.rec.Reconcile(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !out.Written {
		t.Fatal("expected a missing processed.log to be written")
	}
	if _, err := os.Stat(f.working.ProcessedLog()); err != nil {
		t.Fatalf("expected empty processed.log: %v", err)
	}
	again, err := f.rec.Reconcile(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("second Reconcile: %v", err)
	}
	if again.Written {
		t.Fatal("an existing empty processed.log must not be rewritten")
	}

	if err := os.Remove(f.working.ProcessedLog()); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(f.working.ProcessedLog(), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := f.rec.Reconcile(context.Background(), nil, nil); !errors.Is(err, report.ErrFilesystemOperation) {
		t.Fatalf("expected unreadable processed.log to fail the pass, got %v", err)
	}
}

func TestReconcilePurgesArchivedFailures(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteLines(t, f.storage.CompletedLog(), "Done.ncm")
	testsupport.WriteLines(t, f.working.FailedLog(), "Done.ncm (timeout)")

	out, err := f.rec.Reconcile(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(out.Purged) != 1 {
		t.Fatalf("expected archived failure to be purged, got %+v", out)
	}
}

func TestRepairStorageAppendsUnloggedPair(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, filepath.Join(f.storage.Originals(), "A.ncm"), 10)
	testsupport.WriteFile(t, filepath.Join(f.storage.Converted(), "a.mp3"), 10)
	testsupport.WriteFile(t, filepath.Join(f.storage.Converted(), "Orphan.mp3"), 10)
	testsupport.WriteFile(t, filepath.Join(f.storage.Originals(), "B.ncm"), 10)
	testsupport.WriteFile(t, filepath.Join(f.storage.Converted(), "B.mp3"), 10)
	testsupport.WriteLines(t, f.storage.CompletedLog(), "B.ncm")

	result, err := f.rec.RepairStorage(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("RepairStorage: %v", err)
	}
	if diff := cmp.Diff([]string{"A.ncm", "Orphan.mp3"}, result.Repaired); diff != "" {
		t.Fatalf("repaired mismatch (-want +got):\n%s", diff)
	}
	if len(result.PartialPairs) != 0 {
		t.Fatalf("unexpected partial pairs %+v", result.PartialPairs)
	}
	want := []string{"A.ncm", "B.ncm", "Orphan.mp3"}
	for _, path := range []string{f.working.CompletedLog(), f.storage.CompletedLog()} {
		if diff := cmp.Diff(want, testsupport.SortedLines(t, path)); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", path, diff)
		}
	}

	again, err := f.rec.RepairStorage(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("second RepairStorage: %v", err)
	}
	if len(again.Repaired) != 0 || len(again.Synced) != 0 {
		t.Fatalf("expected second repair to be a no-op, got %+v", again)
	}
}

func TestRepairStorageReportsPartialPair(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, filepath.Join(f.storage.Originals(), "P.ncm"), 10)
	testsupport.WriteFile(t, f.working.DerivedPath("P.mp3"), 10)
	_, derived := f.scan(t)

	result, err := f.rec.RepairStorage(context.Background(), nil, derived)
	if err != nil {
		t.Fatalf("RepairStorage: %v", err)
	}
	want := []ledger.PartialPair{{Source: "P.ncm", Derived: "P.mp3"}}
	if diff := cmp.Diff(want, result.PartialPairs); diff != "" {
		t.Fatalf("partial pairs mismatch (-want +got):\n%s", diff)
	}
	if len(result.Problems) != 1 || result.Problems[0].Kind != report.KindPartialPair {
		t.Fatalf("expected one partial pair problem, got %+v", result.Problems)
	}
	if lines := testsupport.ReadLines(t, f.storage.CompletedLog()); len(lines) != 0 {
		t.Fatalf("partial pair must not be logged, got %v", lines)
	}
	if _, err := os.Stat(f.working.DerivedPath("P.mp3")); err != nil {
		t.Fatal("partial pair must not be resolved automatically")
	}
}

func TestRepairStorageReportsPartialReArchive(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, filepath.Join(f.storage.Originals(), "A.ncm"), 10)
	testsupport.WriteFile(t, filepath.Join(f.storage.Converted(), "A.mp3"), 4)
	testsupport.WriteLines(t, f.storage.CompletedLog(), "A.ncm")
	testsupport.WriteLines(t, f.working.CompletedLog(), "A.ncm")
	testsupport.WriteFile(t, f.working.DerivedPath("A.mp3"), 4)
	sources, derived := f.scan(t)

	result, err := f.rec.RepairStorage(context.Background(), sources, derived)
	if err != nil {
		t.Fatalf("RepairStorage: %v", err)
	}
	want := []ledger.PartialPair{{Source: "A.ncm", Derived: "A.mp3"}}
	if diff := cmp.Diff(want, result.PartialPairs); diff != "" {
		t.Fatalf("partial pairs mismatch (-want +got):\n%s", diff)
	}
	if len(result.Problems) != 1 || result.Problems[0].Kind != report.KindPartialPair {
		t.Fatalf("expected one partial pair problem, got %+v", result.Problems)
	}

	// A fresh source for the same title makes it an ordinary pending pair.
	testsupport.WriteFile(t, f.working.SourcePath("A.ncm"), 10)
	sources, derived = f.scan(t)
	result, err = f.rec.RepairStorage(context.Background(), sources, derived)
	if err != nil {
		t.Fatalf("RepairStorage: %v", err)
	}
	if len(result.PartialPairs) != 0 {
		t.Fatalf("expected no partial pair while the source is present, got %+v", result.PartialPairs)
	}
}

func TestRepairStorageSyncsCompletedLogs(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteLines(t, f.working.CompletedLog(), "W.ncm", "Both.ncm")
	testsupport.WriteLines(t, f.storage.CompletedLog(), "Both.ncm", "S.ncm")

	result, err := f.rec.RepairStorage(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("RepairStorage: %v", err)
	}
	if len(result.Synced) != 2 {
		t.Fatalf("expected 2 synced entries, got %v", result.Synced)
	}
	want := []string{"Both.ncm", "S.ncm", "W.ncm"}
	for _, path := range []string{f.working.CompletedLog(), f.storage.CompletedLog()} {
		if diff := cmp.Diff(want, testsupport.SortedLines(t, path)); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", path, diff)
		}
	}
}

func TestRepairStorageWithoutStorage(t *testing.T) {
	f := newFixture(t)
	f.rec.Storage = layout.Storage{}
	result, err := f.rec.RepairStorage(context.Background(), nil, nil)
	if err != nil || len(result.Repaired) != 0 {
		t.Fatalf("expected no-op without storage, got %+v %v", result, err)
	}
}
