package ledger

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"mediasync/internal/layout"
)

var testAllow = layout.NewExtensions([]string{".ncm", ".kgm", ".mflac"})

func TestFailedName(t *testing.T) {
	cases := []struct {
		line, want string
	}{
		{"X.ncm (timeout)", "X.ncm"},
		{"X.ncm", "X.ncm"},
		{"  X.ncm  ", "X.ncm"},
		{"Song (Live).ncm (timeout)", "Song (Live).ncm"},
		{"Song (Live).ncm", "Song (Live).ncm"},
		{"Weird.bin (exit 3)", "Weird.bin"},
		{"(orphan)", "(orphan)"},
	}
	for _, tc := range cases {
		if got := FailedName(tc.line, testAllow); got != tc.want {
			t.Errorf("FailedName(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestFailedEntry(t *testing.T) {
	if got := FailedEntry("A.ncm", "exit status 3:\n  bad header"); got != "A.ncm (exit status 3: bad header)" {
		t.Fatalf("unexpected entry %q", got)
	}
	if got := FailedEntry("A.ncm", " "); got != "A.ncm" {
		t.Fatalf("unexpected entry %q", got)
	}
}

func TestRebuildProcessed(t *testing.T) {
	sources := []layout.SourceItem{
		layout.NewSourceItem("Z_Song.ncm", 1),
		layout.NewSourceItem("X.ncm", 1),
		layout.NewSourceItem("Pending.kgm", 1),
	}
	derived := []layout.DerivedItem{
		layout.NewDerivedItem("x.mp3", 1),
		layout.NewDerivedItem("z song.flac", 1),
		layout.NewDerivedItem("orphan.mp3", 1),
	}
	got := RebuildProcessed(sources, derived)
	if diff := cmp.Diff([]string{"X.ncm", "Z_Song.ncm"}, got.Items()); diff != "" {
		t.Fatalf("processed mismatch (-want +got):\n%s", diff)
	}
}

func TestPurgeFailedAfterRebuild(t *testing.T) {
	sources := []layout.SourceItem{layout.NewSourceItem("X.ncm", 10), layout.NewSourceItem("Y.ncm", 10)}
	derived := []layout.DerivedItem{layout.NewDerivedItem("X.mp3", 10)}
	processed := RebuildProcessed(sources, derived)

	failed := NewLogSet("X.ncm (timeout)", "Y.ncm (bad header)")
	kept, purged := PurgeFailed(failed, Stems(processed), testAllow)
	if diff := cmp.Diff([]string{"Y.ncm (bad header)"}, kept.Items()); diff != "" {
		t.Fatalf("kept mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"X.ncm (timeout)"}, purged); diff != "" {
		t.Fatalf("purged mismatch (-want +got):\n%s", diff)
	}
	for _, line := range kept.Items() {
		if processed.Has(FailedName(line, testAllow)) {
			t.Fatalf("%q is both failed and processed", line)
		}
	}
}

func TestFailedNames(t *testing.T) {
	got := FailedNames(NewLogSet("A.ncm (x)", "A.ncm (y)", "B.kgm"), testAllow)
	if diff := cmp.Diff([]string{"A.ncm", "B.kgm"}, got.Items()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}
