package layout

import (
	"path/filepath"
	"strings"

	"mediasync/internal/normalize"
)

// SourceItem is a working-root file whose extension is allow-listed.
type SourceItem struct {
	Name string
	Ext  string
	Size int64
	// Stem is the normalized comparison key.
	Stem string
}

// DerivedItem is a converted file in output/.
type DerivedItem struct {
	Name string
	Size int64
	Stem string
}

// NewSourceItem builds a SourceItem from a name and size.
func NewSourceItem(name string, size int64) SourceItem {
	return SourceItem{
		Name: name,
		Ext:  strings.ToLower(filepath.Ext(name)),
		Size: size,
		Stem: normalize.Name(name),
	}
}

// NewDerivedItem builds a DerivedItem from a name and size.
func NewDerivedItem(name string, size int64) DerivedItem {
	return DerivedItem{Name: name, Size: size, Stem: normalize.Name(name)}
}

// Extensions is a case-insensitive extension set.
type Extensions struct {
	set map[string]struct{}
}

// NewExtensions builds a set from extensions with or without a leading dot.
func NewExtensions(exts []string) Extensions {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return Extensions{set: set}
}

// Match reports whether name's final extension is in the set.
func (e Extensions) Match(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return false
	}
	_, ok := e.set[ext]
	return ok
}

// Len is the number of extensions in the set.
func (e Extensions) Len() int { return len(e.set) }

// IsLogFile reports whether name is a log file. Log files live next to
// derived files in output/ but are never derived items or variants.
func IsLogFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".log")
}

// IsHidden reports whether name is a dotfile.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// Sources selects allow-listed files from a working-root snapshot.
func Sources(snap Snapshot, allow Extensions) []SourceItem {
	var items []SourceItem
	for _, e := range snap.entries {
		if IsHidden(e.Name) || !allow.Match(e.Name) {
			continue
		}
		items = append(items, NewSourceItem(e.Name, e.Size))
	}
	return items
}

// Derived selects derived items from an output/ snapshot, skipping logs,
// incomplete transfers, and dotfiles.
func Derived(snap Snapshot, temp Extensions) []DerivedItem {
	var items []DerivedItem
	for _, e := range snap.entries {
		if IsLogFile(e.Name) || IsHidden(e.Name) || temp.Match(e.Name) {
			continue
		}
		items = append(items, NewDerivedItem(e.Name, e.Size))
	}
	return items
}
