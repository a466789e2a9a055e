// Package preflight checks that the directories and the unlock binary a
// command needs are usable before any file is touched.
package preflight
