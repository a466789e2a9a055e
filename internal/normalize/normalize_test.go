package normalize

import "testing"

func TestStemEquivalences(t *testing.T) {
	cases := []struct {
		a, b string
	}{
		{"Song_Name  (Live)", "song name (live)"},
		{"A_B", "a b"},
		{"  Leading\tand trailing  ", "leading and trailing"},
		{"ÉTÉ_Été", "été été"},
		{"Mixed__Under_ Score", "mixed under score"},
	}
	for _, tc := range cases {
		if Stem(tc.a) != Stem(tc.b) {
			t.Errorf("Stem(%q)=%q differs from Stem(%q)=%q", tc.a, Stem(tc.a), tc.b, Stem(tc.b))
		}
	}
}

func TestStemOutput(t *testing.T) {
	if got := Stem("Song_Name  (Live)"); got != "song name (live)" {
		t.Fatalf("unexpected stem %q", got)
	}
	if got := Stem(""); got != "" {
		t.Fatalf("expected empty stem, got %q", got)
	}
	if got := Stem(" _ _ "); got != "" {
		t.Fatalf("expected whitespace-only input to normalize to empty, got %q", got)
	}
}

func TestStemIsIdempotent(t *testing.T) {
	for _, in := range []string{"Song_Name  (Live)", "A_B", "x  y_z", "Ünïcode_Name"} {
		once := Stem(in)
		if twice := Stem(once); twice != once {
			t.Errorf("Stem not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNameAndTrimExt(t *testing.T) {
	cases := []struct {
		in, trimmed, name string
	}{
		{"Song_Name.ncm", "Song_Name", "song name"},
		{"Artist - Title (Live).flac", "Artist - Title (Live)", "artist - title (live)"},
		{"archive.tar.gz", "archive.tar", "archive.tar"},
		{"noext", "noext", "noext"},
		{".hidden", ".hidden", ".hidden"},
	}
	for _, tc := range cases {
		if got := TrimExt(tc.in); got != tc.trimmed {
			t.Errorf("TrimExt(%q) = %q, want %q", tc.in, got, tc.trimmed)
		}
		if got := Name(tc.in); got != tc.name {
			t.Errorf("Name(%q) = %q, want %q", tc.in, got, tc.name)
		}
	}
}
