package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"mediasync/internal/config"
	"mediasync/internal/prompt"
)

type globalFlags struct {
	config  string
	working string
	storage string
	orphans string
	json    bool
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig loads the config file once and applies the directory and
// policy flags on top of it.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if err := c.applyFlags(cfg); err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyFlags(cfg *config.Config) error {
	if value := config.TrimQuotes(c.flags.working); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return fmt.Errorf("--working: %w", err)
		}
		cfg.Paths.WorkingDir = expanded
	}
	if value := config.TrimQuotes(c.flags.storage); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return fmt.Errorf("--storage: %w", err)
		}
		cfg.Paths.StorageDir = expanded
	}
	if value := strings.ToLower(strings.TrimSpace(c.flags.orphans)); value != "" {
		cfg.Archive.Orphans = value
	}
	return cfg.Validate()
}

func (c *commandContext) jsonOutput() bool {
	return c.flags.json
}

func (c *commandContext) prompter(cmd *cobra.Command) *prompt.Prompter {
	return prompt.New(cmd.InOrStdin(), cmd.ErrOrStderr())
}

// resolveWorking fills in the working directory from the prompt, falling back
// to the current directory.
func (c *commandContext) resolveWorking(cfg *config.Config, p *prompt.Prompter) error {
	if cfg.Paths.WorkingDir != "" {
		return nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("determine current directory: %w", err)
	}
	answer, err := p.WorkingDir(cwd)
	if err != nil {
		return err
	}
	expanded, err := config.ExpandPath(answer)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	cfg.Paths.WorkingDir = expanded
	return nil
}

// resolveStorage asks for a storage root when none is configured. Without a
// terminal the prompt fails with prompt.ErrNoInput.
func (c *commandContext) resolveStorage(cfg *config.Config, p *prompt.Prompter) error {
	if cfg.Paths.StorageDir != "" {
		return nil
	}
	answer, err := p.StorageDir()
	if err != nil {
		return err
	}
	expanded, err := config.ExpandPath(answer)
	if err != nil {
		return fmt.Errorf("storage directory: %w", err)
	}
	cfg.Paths.StorageDir = expanded
	return cfg.Validate()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
