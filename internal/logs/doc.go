// Package logs locates and reads the per-run log files under log_dir/runs.
//
// Reads use bounded memory: the last N lines come from a ring buffer and
// follow mode resumes from a byte offset, so `mediasync logs --follow` can
// trail a long watch session without loading the whole file.
package logs
