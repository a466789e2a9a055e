package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mediasync/internal/dedupe"
	"mediasync/internal/layout"
	"mediasync/internal/logging"
	"mediasync/internal/reconcile"
	"mediasync/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep output/ free of duplicates and incomplete downloads until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := ctx.resolveWorking(cfg, ctx.prompter(cmd)); err != nil {
				return err
			}
			sess, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer sess.Close()

			working := layout.Working{Root: cfg.Paths.WorkingDir}
			out := cmd.OutOrStdout()
			w := &watch.Watcher{
				Dir:            working.Output(),
				TempExtensions: cfg.Sources.TempExtensions,
				Debounce:       cfg.WatchDebounce(),
				Lock:           reconcile.NewLock(working),
				Logger:         logging.WithContext(logging.WithRunID(cmd.Context(), sess.runID), sess.logger),
				OnPass: func(r dedupe.Result) {
					for _, name := range r.Deleted {
						fmt.Fprintf(out, "removed  %s\n", name)
					}
					for _, rn := range r.Renamed {
						fmt.Fprintf(out, "renamed  %s -> %s\n", rn.From, rn.To)
					}
				},
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", w.Dir)
			if err := w.Run(cmd.Context()); err != nil {
				return err
			}
			stats := w.Stats()
			fmt.Fprintf(out, "%d passes, %d removed, %d renamed\n", stats.Passes, stats.Deleted, stats.Renamed)
			return nil
		},
	}
}
