//go:build !unix

package preflight

// access is a no-op where POSIX access(2) is unavailable; the first failing
// operation reports the problem instead.
func access(string) error { return nil }
