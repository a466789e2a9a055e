// Package ledger keeps the three flat-file record sets truthful:
//
//   - processed.log: sources whose derived file is currently in output/.
//     Rebuilt from scratch and overwritten on every pass.
//   - failed.log: sources that errored, optionally "name (reason)". Entries
//     whose item later succeeded are purged; the rest are overwritten.
//   - completed.log: names moved to storage. Append-only, kept in both the
//     output/ directory and the storage root.
//
// Log sets are plain values. Functions take sets and return new ones; disk is
// only touched by Load, Save and Append at the checkpoints the caller picks.
package ledger
