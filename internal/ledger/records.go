package ledger

import (
	"errors"
	"slices"
	"strings"

	"mediasync/internal/layout"
	"mediasync/internal/matcher"
	"mediasync/internal/normalize"
)

// Paths locates every log file of one working/storage pair. StorageCompleted
// is empty when no storage root is configured.
type Paths struct {
	Processed        string
	Failed           string
	WorkingCompleted string
	StorageCompleted string
}

// PathsFor derives log locations from the directory layout.
func PathsFor(w layout.Working, s layout.Storage) Paths {
	p := Paths{
		Processed:        w.ProcessedLog(),
		Failed:           w.FailedLog(),
		WorkingCompleted: w.CompletedLog(),
	}
	if strings.TrimSpace(s.Root) != "" {
		p.StorageCompleted = s.CompletedLog()
	}
	return p
}

// AppendCompleted appends names to both completed logs. Each log is written
// independently; a failure on one does not stop the other.
func (p Paths) AppendCompleted(names ...string) error {
	var errs []error
	for _, path := range p.completedLogs() {
		if _, err := Append(path, names...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadCompleted returns the union of both completed logs, working copy first.
func (p Paths) LoadCompleted() (LogSet, error) {
	var out LogSet
	for _, path := range p.completedLogs() {
		set, err := Load(path)
		if err != nil {
			return LogSet{}, err
		}
		out = out.Union(set)
	}
	return out, nil
}

func (p Paths) completedLogs() []string {
	var paths []string
	for _, path := range []string{p.WorkingCompleted, p.StorageCompleted} {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// RebuildProcessed returns exactly the source names whose normalized stem has
// a derived file, in source-name order.
func RebuildProcessed(sources []layout.SourceItem, derived []layout.DerivedItem) LogSet {
	stems := matcher.Stems(derived)
	var names []string
	for _, src := range sources {
		if _, ok := stems[src.Stem]; ok {
			names = append(names, src.Name)
		}
	}
	slices.Sort(names)
	return NewLogSet(names...)
}

// Stems maps every entry of a set of file names to its normalized stem.
func Stems(set LogSet) map[string]struct{} {
	out := make(map[string]struct{}, set.Len())
	for _, item := range set.items {
		out[normalize.Name(item)] = struct{}{}
	}
	return out
}

// FailedName extracts the file name from a failed.log line. The name is the
// text before the first "(", unless the whole line or a prefix ending at an
// earlier " (" carries an allow-listed extension, which keeps names such as
// "Song (Live).ncm (timeout)" intact.
func FailedName(line string, allow layout.Extensions) string {
	line = strings.TrimSpace(line)
	if allow.Match(line) {
		return line
	}
	if strings.HasSuffix(line, ")") {
		for i := 0; i < len(line); {
			j := strings.Index(line[i:], " (")
			if j < 0 {
				break
			}
			prefix := strings.TrimSpace(line[:i+j])
			if allow.Match(prefix) {
				return prefix
			}
			i += j + 2
		}
	}
	if cut, _, found := strings.Cut(line, "("); found {
		if name := strings.TrimSpace(cut); name != "" {
			return name
		}
	}
	return line
}

// FailedEntry formats a failed.log line.
func FailedEntry(name, reason string) string {
	reason = strings.Join(strings.Fields(reason), " ")
	if reason == "" {
		return name
	}
	return name + " (" + reason + ")"
}

// PurgeFailed removes entries whose item now resolves, that is whose name's
// stem is in resolvedStems. It returns the remaining set and the removed lines.
func PurgeFailed(failed LogSet, resolvedStems map[string]struct{}, allow layout.Extensions) (LogSet, []string) {
	var kept LogSet
	var purged []string
	for _, line := range failed.items {
		if _, ok := resolvedStems[normalize.Name(FailedName(line, allow))]; ok {
			purged = append(purged, line)
			continue
		}
		kept.Add(line)
	}
	return kept, purged
}

// FailedNames returns the file names recorded in failed.log.
func FailedNames(failed LogSet, allow layout.Extensions) LogSet {
	var out LogSet
	for _, line := range failed.items {
		out.Add(FailedName(line, allow))
	}
	return out
}
