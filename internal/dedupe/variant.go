package dedupe

import (
	"regexp"
	"strconv"

	"mediasync/internal/layout"
)

var variantPattern = regexp.MustCompile(`^(.+?)\s*\((\d+)\)(\.[^.]+)$`)

// Variant is a numbered duplicate decomposed into its parts.
type Variant struct {
	Name   string
	Base   string
	Number int
	Ext    string
	Size   int64
}

// Sibling is the un-numbered name the variant collides with.
func (v Variant) Sibling() string {
	return v.Base + v.Ext
}

// ParseVariant decomposes name as <base><optional spaces>(<digits>)<ext>.
// Log files are never variants.
func ParseVariant(name string) (Variant, bool) {
	if layout.IsLogFile(name) {
		return Variant{}, false
	}
	m := variantPattern.FindStringSubmatch(name)
	if m == nil {
		return Variant{}, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return Variant{}, false
	}
	return Variant{Name: name, Base: m[1], Number: n, Ext: m[3]}, true
}
