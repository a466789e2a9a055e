package dedupe

import (
	"cmp"
	"slices"

	"mediasync/internal/layout"
)

// Op is the kind of filesystem change an Action performs.
type Op string

const (
	OpDelete Op = "delete"
	OpRename Op = "rename"
)

// Reasons attached to actions, also used as the logged decision result.
const (
	ReasonExactDuplicate = "exact_duplicate"
	ReasonSmaller        = "smaller_than_kept"
	ReasonReplaced       = "replaced_by_larger_variant"
	ReasonPromoted       = "variant_promoted"
)

// Action is one planned change inside the snapshot directory.
type Action struct {
	Op     Op
	Name   string
	Target string // rename destination; empty for deletes
	Reason string
}

// Group is a sibling name and every variant that collides with it.
type Group struct {
	Sibling  string
	Present  bool
	Size     int64
	Variants []Variant
}

// Mode selects which groups a plan acts on.
type Mode int

const (
	// Full acts on every group, promoting lone variants to the sibling name.
	Full Mode = iota
	// Quick only acts on groups whose sibling already exists. Lone variants
	// may still be arriving and are left for the next full pass.
	Quick
)

// Groups collects the numbered variants in snap by sibling name, in sibling
// order. Variants inside a group are ordered best first: largest size, then
// lowest number, then name.
func Groups(snap layout.Snapshot) []Group {
	byName := map[string]*Group{}
	var order []string
	for _, e := range snap.Entries() {
		v, ok := ParseVariant(e.Name)
		if !ok {
			continue
		}
		v.Size = e.Size
		sibling := v.Sibling()
		g, ok := byName[sibling]
		if !ok {
			g = &Group{Sibling: sibling}
			if s, present := snap.Lookup(sibling); present {
				g.Present = true
				g.Size = s.Size
			}
			byName[sibling] = g
			order = append(order, sibling)
		}
		g.Variants = append(g.Variants, v)
	}
	slices.Sort(order)
	groups := make([]Group, 0, len(order))
	for _, name := range order {
		g := byName[name]
		slices.SortFunc(g.Variants, func(a, b Variant) int {
			if c := cmp.Compare(b.Size, a.Size); c != 0 {
				return c
			}
			if c := cmp.Compare(a.Number, b.Number); c != 0 {
				return c
			}
			return cmp.Compare(a.Name, b.Name)
		})
		groups = append(groups, *g)
	}
	return groups
}

// Plan returns the actions for one pass over snap. Groups that share a file
// with an earlier group in the same pass (a variant that is itself the
// sibling of a nested variant) are deferred to the next pass.
func Plan(snap layout.Snapshot, mode Mode) []Action {
	var actions []Action
	claimed := map[string]struct{}{}
	for _, g := range Groups(snap) {
		if mode == Quick && !g.Present {
			continue
		}
		if groupClaimed(g, claimed) {
			continue
		}
		claimed[g.Sibling] = struct{}{}
		for _, v := range g.Variants {
			claimed[v.Name] = struct{}{}
		}
		actions = append(actions, planGroup(g)...)
	}
	return actions
}

func groupClaimed(g Group, claimed map[string]struct{}) bool {
	if _, ok := claimed[g.Sibling]; ok {
		return true
	}
	for _, v := range g.Variants {
		if _, ok := claimed[v.Name]; ok {
			return true
		}
	}
	return false
}

// planGroup applies the pairwise size rule until one file per group remains.
// The sibling survives unless some variant is strictly larger; equal sizes
// always drop the variant.
func planGroup(g Group) []Action {
	best := g.Variants[0]
	var actions []Action
	if g.Present && best.Size <= g.Size {
		for _, v := range g.Variants {
			actions = append(actions, Action{Op: OpDelete, Name: v.Name, Reason: loserReason(v.Size, g.Size)})
		}
		return actions
	}
	for _, v := range g.Variants[1:] {
		actions = append(actions, Action{Op: OpDelete, Name: v.Name, Reason: loserReason(v.Size, best.Size)})
	}
	if g.Present {
		actions = append(actions, Action{Op: OpDelete, Name: g.Sibling, Reason: ReasonReplaced})
	}
	return append(actions, Action{Op: OpRename, Name: best.Name, Target: g.Sibling, Reason: ReasonPromoted})
}

func loserReason(size, kept int64) string {
	if size == kept {
		return ReasonExactDuplicate
	}
	return ReasonSmaller
}
