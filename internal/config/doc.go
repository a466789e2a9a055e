// Package config loads, normalizes, and validates mediasync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the CLI needs: default working and storage directories, the source
// extension allow-list, temporary download extensions, orphan handling, the
// external decryption binary, watcher timing, run history, and logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, lower-cased extensions, and clear validation errors.
package config
