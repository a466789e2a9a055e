package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mediasync/internal/preflight"
	"mediasync/internal/unlock"
)

func newUnlockCommand(ctx *commandContext) *cobra.Command {
	var retryFailed bool
	var binary string

	cmd := &cobra.Command{
		Use:   "unlock",
		Short: "Decrypt pending source files into output/ with the configured unlock binary",
		Long: "Runs the unlock binary once per source file that has no converted counterpart yet.\n" +
			"Failures are recorded in output/failed.log and skipped on later runs unless --retry-failed is set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if retryFailed {
				cfg.Unlock.RetryFailed = true
			}
			if value := strings.TrimSpace(binary); value != "" {
				cfg.Unlock.Binary = value
			}
			p := ctx.prompter(cmd)
			if err := ctx.resolveWorking(cfg, p); err != nil {
				return err
			}
			if check := preflight.CheckBinary("unlock binary", cfg.Unlock.Binary); !check.Passed {
				return fmt.Errorf("%s: %s (set unlock.binary or pass --binary)", check.Name, check.Detail)
			}

			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			stderr := cmd.ErrOrStderr()
			progress := func(index, total int, name string) {
				if !ctx.jsonOutput() {
					fmt.Fprintf(stderr, "[%d/%d] %s\n", index, total, name)
				}
			}
			rep, runErr := sess.workflow(p).Unlock(cmd.Context(), sess.runID, unlock.NewCommandDecrypter(cfg), progress)
			if rep != nil {
				if err := printReport(cmd, ctx, rep); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Retry sources listed in failed.log")
	cmd.Flags().StringVar(&binary, "binary", "", "Unlock binary override")
	return cmd
}
