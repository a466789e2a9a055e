package ledger

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// LogSet is an ordered set of log lines. Duplicates are dropped on insert;
// order is insertion order.
type LogSet struct {
	items []string
	index map[string]struct{}
}

// NewLogSet builds a set from items.
func NewLogSet(items ...string) LogSet {
	var s LogSet
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts item and reports whether it was new. Blank items are ignored.
func (s *LogSet) Add(item string) bool {
	item = strings.TrimSpace(item)
	if item == "" {
		return false
	}
	if s.index == nil {
		s.index = map[string]struct{}{}
	}
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

// Has reports whether item is present.
func (s LogSet) Has(item string) bool {
	_, ok := s.index[strings.TrimSpace(item)]
	return ok
}

// Items returns a copy of the entries in order.
func (s LogSet) Items() []string { return slices.Clone(s.items) }

// Len is the number of entries.
func (s LogSet) Len() int { return len(s.items) }

// Equal reports whether both sets hold the same entries in the same order.
func (s LogSet) Equal(other LogSet) bool { return slices.Equal(s.items, other.items) }

// Union returns the entries of s followed by the new entries of other.
func (s LogSet) Union(other LogSet) LogSet {
	out := NewLogSet(s.items...)
	for _, item := range other.items {
		out.Add(item)
	}
	return out
}

// Load reads one entry per line from path. A missing file is an empty set.
func Load(path string) (LogSet, error) {
	s, _, err := loadFile(path)
	return s, err
}

// loadFile is Load that also reports whether path exists.
func loadFile(path string) (LogSet, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LogSet{}, false, nil
		}
		return LogSet{}, false, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	var s LogSet
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.Add(strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return LogSet{}, true, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, true, nil
}

// Save overwrites path with the set through a temp file and rename, so a
// crash leaves either the old or the new contents.
func (s LogSet) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	w := bufio.NewWriter(tmp)
	for _, item := range s.items {
		_, _ = w.WriteString(item)
		_ = w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Append adds the names not already in path to its end and syncs. It returns
// the names actually written.
func Append(path string, names ...string) ([]string, error) {
	existing, err := Load(path)
	if err != nil {
		return nil, err
	}
	var fresh []string
	for _, name := range names {
		if existing.Add(name) {
			fresh = append(fresh, strings.TrimSpace(name))
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	if needsLeadingNewline(path) {
		buf.WriteByte('\n')
	}
	for _, name := range fresh {
		buf.WriteString(name)
		buf.WriteByte('\n')
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("sync %s: %w", path, err)
	}
	return fresh, f.Close()
}

// needsLeadingNewline reports whether a hand-edited log lacks a trailing
// newline, which would glue the next entry onto its last line.
func needsLeadingNewline(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.Size() == 0 {
		return false
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false
	}
	return last[0] != '\n'
}
