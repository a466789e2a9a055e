package layout_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mediasync/internal/layout"
	"mediasync/internal/report"
	"mediasync/internal/testsupport"
)

func TestWorkingValidateMissingOutput(t *testing.T) {
	root := t.TempDir()
	w := layout.Working{Root: root}
	err := w.Validate()
	if !errors.Is(err, report.ErrMissingDirectory) {
		t.Fatalf("expected missing directory error, got %v", err)
	}
	if err := os.Mkdir(w.Output(), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("expected valid layout: %v", err)
	}
}

func TestRequireDirRejectsFilesAndBlank(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	testsupport.WriteFile(t, file, 3)
	for _, path := range []string{"", "  ", file, filepath.Join(t.TempDir(), "absent")} {
		if err := layout.RequireDir(path); !errors.Is(err, report.ErrMissingDirectory) {
			t.Errorf("RequireDir(%q) = %v, want missing directory", path, err)
		}
	}
}

func TestStorageEnsureCreatesSubdirs(t *testing.T) {
	s := layout.Storage{Root: t.TempDir()}
	if err := s.Ensure(); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	for _, dir := range []string{s.Originals(), s.Converted()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected %s to exist: %v", dir, err)
		}
	}

	missing := layout.Storage{Root: filepath.Join(t.TempDir(), "nas")}
	if err := missing.Ensure(); !errors.Is(err, report.ErrMissingDirectory) {
		t.Fatalf("expected missing storage root to be reported, got %v", err)
	}
	if _, err := os.Stat(missing.Root); !os.IsNotExist(err) {
		t.Fatal("storage root must not be created")
	}
}

func TestScanSkipsDirectoriesAndSorts(t *testing.T) {
	dir := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(dir, "b.ncm"), 20)
	testsupport.WriteFile(t, filepath.Join(dir, "a.ncm"), 10)
	if err := os.Mkdir(filepath.Join(dir, "output"), 0o755); err != nil {
		t.Fatal(err)
	}

	snap, err := layout.Scan(dir)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []layout.Entry{{Name: "a.ncm", Size: 10}, {Name: "b.ncm", Size: 20}}
	if diff := cmp.Diff(want, snap.Entries()); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if e, ok := snap.Lookup("b.ncm"); !ok || e.Size != 20 {
		t.Fatalf("Lookup(b.ncm) = %+v, %v", e, ok)
	}
	if snap.Has("output") {
		t.Fatal("directories must not appear in snapshots")
	}
}

func TestScanOptional(t *testing.T) {
	snap, err := layout.ScanOptional(filepath.Join(t.TempDir(), "Originals"))
	if err != nil {
		t.Fatalf("ScanOptional: %v", err)
	}
	if snap.Len() != 0 {
		t.Fatalf("expected empty snapshot, got %v", snap.Names())
	}
	if _, err := layout.Scan(filepath.Join(t.TempDir(), "absent")); !errors.Is(err, report.ErrMissingDirectory) {
		t.Fatalf("expected Scan to report missing directory, got %v", err)
	}
}

func TestSourcesUsesAllowList(t *testing.T) {
	snap := layout.NewSnapshot("/w", []layout.Entry{
		{Name: "Song_One.NCM", Size: 5},
		{Name: "cover.jpg", Size: 1},
		{Name: "two.kgm", Size: 7},
		{Name: ".mediasync.lock", Size: 0},
		{Name: "notes", Size: 2},
	})
	allow := layout.NewExtensions([]string{".ncm", "kgm"})
	got := layout.Sources(snap, allow)
	want := []layout.SourceItem{
		{Name: "Song_One.NCM", Ext: ".ncm", Size: 5, Stem: "song one"},
		{Name: "two.kgm", Ext: ".kgm", Size: 7, Stem: "two"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sources mismatch (-want +got):\n%s", diff)
	}
}

func TestDerivedExclusions(t *testing.T) {
	snap := layout.NewSnapshot("/w/output", []layout.Entry{
		{Name: "A.mp3", Size: 5},
		{Name: "processed.log", Size: 1},
		{Name: "FAILED.LOG", Size: 1},
		{Name: "B.mp3.crdownload", Size: 3},
		{Name: ".DS_Store", Size: 3},
		{Name: "C (1).flac", Size: 9},
	})
	got := layout.Derived(snap, layout.NewExtensions([]string{".crdownload", ".tmp"}))
	want := []layout.DerivedItem{
		{Name: "A.mp3", Size: 5, Stem: "a"},
		{Name: "C (1).flac", Size: 9, Stem: "c (1)"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("derived mismatch (-want +got):\n%s", diff)
	}
}

func TestNewSnapshotDropsDuplicateNames(t *testing.T) {
	snap := layout.NewSnapshot("/d", []layout.Entry{{Name: "x", Size: 1}, {Name: "x", Size: 2}})
	if snap.Len() != 1 {
		t.Fatalf("expected one entry, got %d", snap.Len())
	}
	if e, _ := snap.Lookup("x"); e.Size != 1 {
		t.Fatalf("expected first occurrence to win, got %+v", e)
	}
}
