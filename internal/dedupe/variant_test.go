package dedupe

import "testing"

func TestParseVariant(t *testing.T) {
	cases := []struct {
		name    string
		ok      bool
		base    string
		number  int
		ext     string
		sibling string
	}{
		{name: "Track (1).flac", ok: true, base: "Track", number: 1, ext: ".flac", sibling: "Track.flac"},
		{name: "Track(12).mp3", ok: true, base: "Track", number: 12, ext: ".mp3", sibling: "Track.mp3"},
		{name: "Song (Live) (2).mp3", ok: true, base: "Song (Live)", number: 2, ext: ".mp3", sibling: "Song (Live).mp3"},
		{name: "X (1) (2).mp3", ok: true, base: "X (1)", number: 2, ext: ".mp3", sibling: "X (1).mp3"},
		{name: "Song (Live).mp3", ok: false},
		{name: "Track.flac", ok: false},
		{name: "Track (1)", ok: false},
		{name: "Track (1).mp3.crdownload", ok: false},
		{name: "failed (1).log", ok: false},
		{name: "(1).mp3", ok: false},
	}
	for _, tc := range cases {
		v, ok := ParseVariant(tc.name)
		if ok != tc.ok {
			t.Errorf("ParseVariant(%q) ok = %v, want %v", tc.name, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if v.Base != tc.base || v.Number != tc.number || v.Ext != tc.ext {
			t.Errorf("ParseVariant(%q) = %+v", tc.name, v)
		}
		if v.Sibling() != tc.sibling {
			t.Errorf("Sibling(%q) = %q, want %q", tc.name, v.Sibling(), tc.sibling)
		}
	}
}
