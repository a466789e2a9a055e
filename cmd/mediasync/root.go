package main

import (
	"github.com/spf13/cobra"

	"mediasync/internal/reconcile"
)

func newRootCommand() *cobra.Command {
	var flags globalFlags

	ctx := newCommandContext(&flags)

	rootCmd := &cobra.Command{
		Use:           "mediasync",
		Short:         "Reconcile converted media against its sources and archive finished pairs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Configuration file path")
	pf.StringVarP(&flags.working, "working", "w", "", "Working directory holding sources and output/")
	pf.StringVarP(&flags.storage, "storage", "s", "", "Storage root for Originals/ and Converted/")
	pf.StringVar(&flags.orphans, "orphans", "", "Orphan policy override: prompt, never, or always")
	pf.BoolVar(&flags.json, "json", false, "Print the run report as JSON")

	rootCmd.AddCommand(newReconcileCommand(ctx, reconcile.ModeRun,
		"run", "Clean output/, reconcile logs, and archive finished pairs when a storage root is set"))
	rootCmd.AddCommand(newReconcileCommand(ctx, reconcile.ModeClean,
		"clean", "Remove duplicates and incomplete downloads, then reconcile logs"))
	rootCmd.AddCommand(newReconcileCommand(ctx, reconcile.ModeArchive,
		"archive", "Like run, but a storage root is required"))
	rootCmd.AddCommand(newUnlockCommand(ctx))
	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}
