// Package reconcile runs one reconciliation pass over a working root and,
// optionally, a storage root.
//
// A run holds an advisory lock on the working root, removes incomplete
// downloads, collapses numbered duplicates, pairs derived files with their
// sources, repairs the completed logs from what is already in storage,
// archives pairs and confirmed orphans, and finally rewrites processed.log and
// failed.log from the resulting directory contents. Every step reports into a
// single report.Report; only a missing directory, a held lock, or
// cancellation stops a run early.
package reconcile
