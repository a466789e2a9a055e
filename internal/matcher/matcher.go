// Package matcher pairs derived files with the source files they came from.
// Two names match when their normalized stems are exactly equal. Matching
// never touches the filesystem.
package matcher

import (
	"slices"
	"strings"

	"mediasync/internal/layout"
)

// Pair is one source paired with one derived file.
type Pair struct {
	Source  layout.SourceItem
	Derived layout.DerivedItem
}

// Result holds the pairs in source-name order and the unmatched derived
// files in name order.
type Result struct {
	Matches []Pair
	Orphans []layout.DerivedItem
}

// Match pairs sources and derived items by normalized stem. The outcome does
// not depend on input order: both lists are sorted by name first, the first
// source claims a stem shared by several sources, and when several derived
// items share a stem the first is matched and the rest become orphans.
func Match(sources []layout.SourceItem, derived []layout.DerivedItem) Result {
	sortedSources := slices.Clone(sources)
	slices.SortFunc(sortedSources, func(a, b layout.SourceItem) int { return strings.Compare(a.Name, b.Name) })
	sortedDerived := slices.Clone(derived)
	slices.SortFunc(sortedDerived, func(a, b layout.DerivedItem) int { return strings.Compare(a.Name, b.Name) })

	byStem := make(map[string]layout.SourceItem, len(sortedSources))
	for _, src := range sortedSources {
		if _, taken := byStem[src.Stem]; taken {
			continue
		}
		byStem[src.Stem] = src
	}

	var result Result
	used := make(map[string]struct{}, len(sortedDerived))
	for _, d := range sortedDerived {
		src, ok := byStem[d.Stem]
		if !ok {
			result.Orphans = append(result.Orphans, d)
			continue
		}
		if _, dup := used[d.Stem]; dup {
			result.Orphans = append(result.Orphans, d)
			continue
		}
		used[d.Stem] = struct{}{}
		result.Matches = append(result.Matches, Pair{Source: src, Derived: d})
	}
	slices.SortFunc(result.Matches, func(a, b Pair) int { return strings.Compare(a.Source.Name, b.Source.Name) })
	return result
}

// Stems returns the set of stems that currently have a derived file.
func Stems(derived []layout.DerivedItem) map[string]struct{} {
	set := make(map[string]struct{}, len(derived))
	for _, d := range derived {
		set[d.Stem] = struct{}{}
	}
	return set
}

// OrphanNames lists orphan file names.
func (r Result) OrphanNames() []string {
	names := make([]string, len(r.Orphans))
	for i, o := range r.Orphans {
		names[i] = o.Name
	}
	return names
}
