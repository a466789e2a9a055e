package matcher_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mediasync/internal/layout"
	"mediasync/internal/matcher"
)

func sources(names ...string) []layout.SourceItem {
	out := make([]layout.SourceItem, len(names))
	for i, n := range names {
		out[i] = layout.NewSourceItem(n, int64(i+1))
	}
	return out
}

func derived(names ...string) []layout.DerivedItem {
	out := make([]layout.DerivedItem, len(names))
	for i, n := range names {
		out[i] = layout.NewDerivedItem(n, int64(i+1))
	}
	return out
}

func pairs(r matcher.Result) [][2]string {
	out := make([][2]string, len(r.Matches))
	for i, m := range r.Matches {
		out[i] = [2]string{m.Source.Name, m.Derived.Name}
	}
	return out
}

func TestMatchNormalizedStems(t *testing.T) {
	r := matcher.Match(
		sources("Song_Name  (Live).ncm", "A_B.kgm", "Unconverted.mflac"),
		derived("song name (live).flac", "a b.mp3", "C.mp3"),
	)
	want := [][2]string{
		{"A_B.kgm", "a b.mp3"},
		{"Song_Name  (Live).ncm", "song name (live).flac"},
	}
	if diff := cmp.Diff(want, pairs(r)); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"C.mp3"}, r.OrphanNames()); diff != "" {
		t.Fatalf("orphans mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchIsExactNotFuzzy(t *testing.T) {
	r := matcher.Match(sources("Track.ncm"), derived("Track (1).mp3", "Track 2.mp3"))
	if len(r.Matches) != 0 {
		t.Fatalf("expected no matches, got %v", pairs(r))
	}
	if len(r.Orphans) != 2 {
		t.Fatalf("expected two orphans, got %v", r.OrphanNames())
	}
}

func TestMatchEachSideAtMostOnce(t *testing.T) {
	r := matcher.Match(
		sources("Dup.ncm", "dup.kgm"),
		derived("Dup.mp3", "dup.flac"),
	)
	want := [][2]string{{"Dup.ncm", "Dup.mp3"}}
	if diff := cmp.Diff(want, pairs(r)); diff != "" {
		t.Fatalf("matches mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"dup.flac"}, r.OrphanNames()); diff != "" {
		t.Fatalf("orphans mismatch (-want +got):\n%s", diff)
	}
}

func TestMatchDeterministicAcrossListingOrder(t *testing.T) {
	src := sources("A.ncm", "B.ncm", "b.kgm", "C_D.qmc0", "E.mgg")
	der := derived("a.mp3", "B.flac", "b.mp3", "c d.mp3", "Z.mp3", "e.ogg", "E.flac")
	want := matcher.Match(src, der)

	rng := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		s := append([]layout.SourceItem(nil), src...)
		d := append([]layout.DerivedItem(nil), der...)
		rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
		rng.Shuffle(len(d), func(i, j int) { d[i], d[j] = d[j], d[i] })
		if diff := cmp.Diff(want, matcher.Match(s, d)); diff != "" {
			t.Fatalf("result depends on listing order (-want +got):\n%s", diff)
		}
	}
}

func TestMatchDoesNotMutateInputs(t *testing.T) {
	src := sources("b.ncm", "a.ncm")
	before := append([]layout.SourceItem(nil), src...)
	matcher.Match(src, derived("a.mp3"))
	if diff := cmp.Diff(before, src); diff != "" {
		t.Fatalf("input reordered (-before +after):\n%s", diff)
	}
}
