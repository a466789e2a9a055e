// Package unlock drives an external decryption tool over the pending source
// files of a working root. It decides which sources still need work, runs the
// tool one file at a time, records failures, and collapses duplicates the
// tool leaves behind after every file.
package unlock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"mediasync/internal/config"
)

var commandContext = exec.CommandContext

// Decrypter converts one source file into outputDir.
type Decrypter interface {
	Decrypt(ctx context.Context, sourcePath, outputDir string) error
}

// CommandDecrypter runs "<binary> -i <source> -o <outputDir> [extra...]".
type CommandDecrypter struct {
	Binary    string
	ExtraArgs []string
	Timeout   time.Duration
}

// NewCommandDecrypter builds a decrypter from the [unlock] config section.
func NewCommandDecrypter(cfg *config.Config) *CommandDecrypter {
	return &CommandDecrypter{
		Binary:    cfg.Unlock.Binary,
		ExtraArgs: append([]string(nil), cfg.Unlock.ExtraArgs...),
		Timeout:   cfg.UnlockTimeout(),
	}
}

// Decrypt runs the tool and folds the last stderr line into the error.
func (d *CommandDecrypter) Decrypt(ctx context.Context, sourcePath, outputDir string) error {
	if strings.TrimSpace(d.Binary) == "" {
		return errors.New("unlock binary not configured")
	}
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	args := append([]string{"-i", sourcePath, "-o", outputDir}, d.ExtraArgs...)
	cmd := commandContext(ctx, d.Binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s", d.Timeout)
	}
	if detail := lastLine(stderr.String()); detail != "" {
		return fmt.Errorf("%w: %s", err, detail)
	}
	return err
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
