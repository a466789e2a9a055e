package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSources()
	c.normalizeArchive()
	c.normalizeUnlock()
	c.normalizeWatch()
	c.normalizeHistory()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkingDir, err = expandPath(TrimQuotes(c.Paths.WorkingDir)); err != nil {
		return fmt.Errorf("paths.working_dir: %w", err)
	}
	if c.Paths.StorageDir, err = expandPath(TrimQuotes(c.Paths.StorageDir)); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StorageDir == "" {
		if value, ok := os.LookupEnv("MEDIASYNC_STORAGE_DIR"); ok && strings.TrimSpace(value) != "" {
			if c.Paths.StorageDir, err = expandPath(TrimQuotes(value)); err != nil {
				return fmt.Errorf("MEDIASYNC_STORAGE_DIR: %w", err)
			}
		}
	}
	return nil
}

func (c *Config) normalizeSources() {
	c.Sources.Extensions = normalizeExtensions(c.Sources.Extensions, DefaultSourceExtensions)
	c.Sources.TempExtensions = normalizeExtensions(c.Sources.TempExtensions, DefaultTempExtensions)
}

// normalizeExtensions lower-cases, dot-prefixes, and de-duplicates an
// extension list, falling back to defaults when nothing usable remains.
func normalizeExtensions(values, fallback []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, exists := seen[ext]; exists {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), fallback...)
	}
	return out
}

func (c *Config) normalizeArchive() {
	c.Archive.Orphans = strings.ToLower(strings.TrimSpace(c.Archive.Orphans))
	if c.Archive.Orphans == "" {
		c.Archive.Orphans = defaultOrphanPolicy
	}
}

func (c *Config) normalizeUnlock() {
	c.Unlock.Binary = strings.TrimSpace(c.Unlock.Binary)
	if c.Unlock.Binary == "" {
		c.Unlock.Binary = defaultUnlockBinary
	}
	if c.Unlock.TimeoutSeconds <= 0 {
		c.Unlock.TimeoutSeconds = defaultUnlockTimeout
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.DebounceMillis <= 0 {
		c.Watch.DebounceMillis = defaultWatchDebounceMS
	}
}

func (c *Config) normalizeHistory() {
	if c.History.KeepRecent < 0 {
		c.History.KeepRecent = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// TrimQuotes strips surrounding whitespace and one pair of matching double
// quotes, as left behind by drag-and-drop paths pasted into a terminal.
func TrimQuotes(value string) string {
	value = strings.TrimSpace(value)
	if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
		value = strings.TrimSpace(value[1 : len(value)-1])
	}
	return value
}
