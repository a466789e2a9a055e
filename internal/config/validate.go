package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.WorkingDir != "" && c.Paths.WorkingDir == c.Paths.StorageDir {
		return errors.New("paths.storage_dir must differ from paths.working_dir")
	}
	return nil
}

func (c *Config) validateSources() error {
	for _, ext := range c.Sources.Extensions {
		if slices.Contains(c.Sources.TempExtensions, ext) {
			return fmt.Errorf("sources.extensions and sources.temp_extensions both contain %q", ext)
		}
		if ext == ".log" {
			return errors.New("sources.extensions must not contain .log")
		}
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Orphans {
	case OrphanPolicyPrompt, OrphanPolicyNever, OrphanPolicyAlways:
		return nil
	default:
		return fmt.Errorf("archive.orphans must be one of %q, %q, %q (got %q)",
			OrphanPolicyPrompt, OrphanPolicyNever, OrphanPolicyAlways, c.Archive.Orphans)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}
