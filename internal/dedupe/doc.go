// Package dedupe collapses numbered duplicate files ("Name (1).ext") and
// removes incomplete download artifacts from a single directory.
//
// Work is split into planning and applying. Plan reads an immutable
// layout.Snapshot and returns actions; apply performs them and records each
// outcome in a Result. A failed delete or rename is reported and skipped,
// never fatal. Resolve re-plans on a fresh snapshot after every pass so nested
// variants ("X (1) (2).ext") collapse fully and a second run is a no-op.
//
// The size rule is a heuristic carried over from the workflow this replaces:
// an equal-size variant is a duplicate, a smaller variant is a partial
// earlier attempt, and a strictly larger variant is the complete copy.
package dedupe
