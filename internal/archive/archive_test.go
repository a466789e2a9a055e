package archive_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mediasync/internal/archive"
	"mediasync/internal/fileutil"
	"mediasync/internal/layout"
	"mediasync/internal/ledger"
	"mediasync/internal/logging"
	"mediasync/internal/matcher"
	"mediasync/internal/report"
	"mediasync/internal/testsupport"
)

func setup(t *testing.T) (*archive.Archiver, layout.Working, layout.Storage) {
	t.Helper()
	base := t.TempDir()
	w := layout.Working{Root: filepath.Join(base, "work")}
	s := layout.Storage{Root: filepath.Join(base, "nas")}
	for _, dir := range []string{w.Output(), s.Root} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	a := &archive.Archiver{
		Working: w,
		Storage: s,
		Ledger:  ledger.PathsFor(w, s),
		Logger:  logging.NewNop(),
	}
	return a, w, s
}

func pair(source, derived string, size int64) matcher.Pair {
	return matcher.Pair{
		Source:  layout.NewSourceItem(source, size),
		Derived: layout.NewDerivedItem(derived, size),
	}
}

func TestArchivePairsMovesAndLogs(t *testing.T) {
	a, w, s := setup(t)
	testsupport.WriteFile(t, w.SourcePath("A.ncm"), 10)
	testsupport.WriteFile(t, w.DerivedPath("A.mp3"), 20)
	testsupport.WriteFile(t, filepath.Join(s.Originals(), "A.ncm"), 3)

	result, err := a.ArchivePairs(context.Background(), []matcher.Pair{pair("A.ncm", "A.mp3", 20)})
	if err != nil {
		t.Fatalf("ArchivePairs: %v", err)
	}
	if len(result.Problems) != 0 || result.FilesMoved != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if size := testsupport.Listing(t, s.Originals())["A.ncm"]; size != 10 {
		t.Fatalf("expected existing destination overwritten, size %d", size)
	}
	if _, ok := testsupport.Listing(t, s.Converted())["A.mp3"]; !ok {
		t.Fatal("derived file not in Converted/")
	}
	for _, path := range []string{w.CompletedLog(), s.CompletedLog()} {
		if diff := cmp.Diff([]string{"A.ncm"}, testsupport.ReadLines(t, path)); diff != "" {
			t.Fatalf("%s mismatch (-want +got):\n%s", path, diff)
		}
	}
}

func TestArchivePairsSkipsMissingSource(t *testing.T) {
	a, w, _ := setup(t)
	testsupport.WriteFile(t, w.DerivedPath("Gone.mp3"), 5)
	testsupport.WriteFile(t, w.SourcePath("B.ncm"), 5)
	testsupport.WriteFile(t, w.DerivedPath("B.mp3"), 5)

	result, err := a.ArchivePairs(context.Background(), []matcher.Pair{
		pair("Gone.ncm", "Gone.mp3", 5),
		pair("B.ncm", "B.mp3", 5),
	})
	if err != nil {
		t.Fatalf("ArchivePairs: %v", err)
	}
	if len(result.Problems) != 1 || result.Problems[0].Kind != report.KindMissingSource {
		t.Fatalf("expected one missing source problem, got %+v", result.Problems)
	}
	if diff := cmp.Diff([]string{"B.ncm"}, result.Archived); diff != "" {
		t.Fatalf("archived mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(w.DerivedPath("Gone.mp3")); err != nil {
		t.Fatal("derived file of a skipped pair must stay")
	}
}

func TestArchivePairsPartialPair(t *testing.T) {
	a, w, s := setup(t)
	testsupport.WriteFile(t, w.SourcePath("P.ncm"), 10)
	testsupport.WriteFile(t, w.DerivedPath("P.mp3"), 10)
	a.Mover = archive.MoverFunc(func(src, dst string) error {
		if strings.HasSuffix(src, ".mp3") {
			return errors.New("simulated failure")
		}
		return fileutil.Move(src, dst)
	})

	result, err := a.ArchivePairs(context.Background(), []matcher.Pair{pair("P.ncm", "P.mp3", 10)})
	if err != nil {
		t.Fatalf("ArchivePairs: %v", err)
	}
	if len(result.Problems) != 1 || result.Problems[0].Kind != report.KindPartialPair {
		t.Fatalf("expected partial pair problem, got %+v", result.Problems)
	}
	if len(result.Archived) != 0 {
		t.Fatalf("partial pair must not be archived, got %v", result.Archived)
	}
	if _, err := os.Stat(w.SourcePath("P.ncm")); !os.IsNotExist(err) {
		t.Fatal("source should have moved")
	}
	if _, err := os.Stat(w.DerivedPath("P.mp3")); err != nil {
		t.Fatal("derived file should remain in output/")
	}
	for _, path := range []string{w.CompletedLog(), s.CompletedLog()} {
		if lines := testsupport.ReadLines(t, path); len(lines) != 0 {
			t.Fatalf("%s must stay empty, got %v", path, lines)
		}
	}

	// The next pass over storage detects the state instead of resolving it.
	rec := &ledger.Reconciler{Working: w, Storage: s, Sources: layout.NewExtensions([]string{".ncm"}), Logger: logging.NewNop()}
	repair, err := rec.RepairStorage(context.Background(), nil, []layout.DerivedItem{layout.NewDerivedItem("P.mp3", 10)})
	if err != nil {
		t.Fatalf("RepairStorage: %v", err)
	}
	if len(repair.PartialPairs) != 1 || repair.PartialPairs[0].Derived != "P.mp3" {
		t.Fatalf("expected partial pair to be detected, got %+v", repair.PartialPairs)
	}
}

func TestArchiveOrphans(t *testing.T) {
	a, w, s := setup(t)
	testsupport.WriteFile(t, w.DerivedPath("C.mp3"), 7)

	result, err := a.ArchiveOrphans(context.Background(), []layout.DerivedItem{layout.NewDerivedItem("C.mp3", 7)})
	if err != nil {
		t.Fatalf("ArchiveOrphans: %v", err)
	}
	if result.FilesMoved != 1 || result.BytesMoved != 7 {
		t.Fatalf("unexpected result %+v", result)
	}
	if _, ok := testsupport.Listing(t, s.Converted())["C.mp3"]; !ok {
		t.Fatal("orphan not in Converted/")
	}
	if diff := cmp.Diff([]string{"C.mp3"}, testsupport.ReadLines(t, s.CompletedLog())); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveOrphansMoveFailure(t *testing.T) {
	a, w, s := setup(t)
	testsupport.WriteFile(t, w.DerivedPath("C.mp3"), 7)
	testsupport.WriteFile(t, w.DerivedPath("D.mp3"), 4)
	a.Mover = archive.MoverFunc(func(src, dst string) error {
		if filepath.Base(src) == "C.mp3" {
			return errors.New("simulated failure")
		}
		return fileutil.Move(src, dst)
	})

	result, err := a.ArchiveOrphans(context.Background(), []layout.DerivedItem{
		layout.NewDerivedItem("C.mp3", 7),
		layout.NewDerivedItem("D.mp3", 4),
	})
	if err != nil {
		t.Fatalf("ArchiveOrphans: %v", err)
	}
	if len(result.Problems) != 1 || result.Problems[0].Kind != report.KindFilesystem {
		t.Fatalf("expected one filesystem problem, got %+v", result.Problems)
	}
	if diff := cmp.Diff([]string{"D.mp3"}, result.Archived); diff != "" {
		t.Fatalf("archived mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(w.DerivedPath("C.mp3")); err != nil {
		t.Fatal("failed orphan must stay in output/")
	}
	if diff := cmp.Diff([]string{"D.mp3"}, testsupport.ReadLines(t, s.CompletedLog())); diff != "" {
		t.Fatalf("completed mismatch (-want +got):\n%s", diff)
	}
}

func TestArchiveMissingStorageRoot(t *testing.T) {
	a, w, _ := setup(t)
	a.Storage = layout.Storage{Root: filepath.Join(t.TempDir(), "unmounted")}
	testsupport.WriteFile(t, w.SourcePath("A.ncm"), 1)
	testsupport.WriteFile(t, w.DerivedPath("A.mp3"), 1)

	_, err := a.ArchivePairs(context.Background(), []matcher.Pair{pair("A.ncm", "A.mp3", 1)})
	if !errors.Is(err, report.ErrMissingDirectory) {
		t.Fatalf("expected missing directory error, got %v", err)
	}
	if _, err := os.Stat(w.SourcePath("A.ncm")); err != nil {
		t.Fatal("nothing may move when storage is missing")
	}
}
