package layout

import (
	"errors"
	"io/fs"
	"os"
	"slices"
	"strings"

	"mediasync/internal/report"
)

// Entry is one regular file observed during a scan.
type Entry struct {
	Name string
	Size int64
}

// Snapshot is an immutable, name-ordered listing of the regular files in a
// directory at one point in time. Planning reads snapshots; applying plans
// touches the filesystem. The two never interleave.
type Snapshot struct {
	dir     string
	entries []Entry
	index   map[string]int
}

// NewSnapshot builds a snapshot from explicit entries. Duplicate names keep
// the first occurrence.
func NewSnapshot(dir string, entries []Entry) Snapshot {
	sorted := make([]Entry, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.Name]; ok {
			continue
		}
		seen[e.Name] = struct{}{}
		sorted = append(sorted, e)
	}
	slices.SortFunc(sorted, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	index := make(map[string]int, len(sorted))
	for i, e := range sorted {
		index[e.Name] = i
	}
	return Snapshot{dir: dir, entries: sorted, index: index}
}

// Scan lists the regular files directly inside dir. A missing dir is an
// ErrMissingDirectory error.
func Scan(dir string) (Snapshot, error) {
	if err := RequireDir(dir); err != nil {
		return Snapshot{}, err
	}
	return scan(dir)
}

// ScanOptional is Scan, except that a missing dir yields an empty snapshot.
// Used for storage subdirectories that only appear after the first archive.
func ScanOptional(dir string) (Snapshot, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return NewSnapshot(dir, nil), nil
	}
	return Scan(dir)
}

func scan(dir string) (Snapshot, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return Snapshot{}, report.Wrap(report.ErrFilesystemOperation, "readdir", dir, err)
	}
	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Vanished between ReadDir and Info.
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), Size: info.Size()})
	}
	return NewSnapshot(dir, entries), nil
}

// Dir is the scanned directory.
func (s Snapshot) Dir() string { return s.dir }

// Len is the number of entries.
func (s Snapshot) Len() int { return len(s.entries) }

// Entries returns a copy of the entries in name order.
func (s Snapshot) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Names returns the entry names in order.
func (s Snapshot) Names() []string {
	names := make([]string, len(s.entries))
	for i, e := range s.entries {
		names[i] = e.Name
	}
	return names
}

// Lookup finds an entry by exact name.
func (s Snapshot) Lookup(name string) (Entry, bool) {
	i, ok := s.index[name]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Has reports whether name is present.
func (s Snapshot) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}
