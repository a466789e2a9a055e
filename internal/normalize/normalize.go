// Package normalize canonicalizes filename stems so that source and derived
// artifacts named by different tools compare equal.
package normalize

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Stem lower-cases s, turns every underscore into a space, collapses runs of
// whitespace into one space, and trims both ends. The result is a comparison
// key only and is never used as a filename.
func Stem(s string) string {
	lowered := cases.Lower(language.Und).String(s)
	lowered = strings.ReplaceAll(lowered, "_", " ")
	return strings.Join(strings.Fields(lowered), " ")
}

// Name returns the normalized stem of a filename (extension removed).
func Name(filename string) string {
	return Stem(TrimExt(filename))
}

// TrimExt removes the final extension from filename. A name that is only an
// extension (".hidden") is returned unchanged.
func TrimExt(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" || ext == filename {
		return filename
	}
	return strings.TrimSuffix(filename, ext)
}
