package main

import (
	"github.com/spf13/cobra"

	"mediasync/internal/reconcile"
)

func newReconcileCommand(ctx *commandContext, mode reconcile.Mode, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			p := ctx.prompter(cmd)
			if err := ctx.resolveWorking(cfg, p); err != nil {
				return err
			}
			if mode == reconcile.ModeArchive {
				if err := ctx.resolveStorage(cfg, p); err != nil {
					return err
				}
			}

			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			rep, runErr := sess.workflow(p).Run(cmd.Context(), mode, sess.runID)
			if rep != nil {
				if err := printReport(cmd, ctx, rep); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}
