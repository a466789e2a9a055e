package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediasync/internal/history"
	"mediasync/internal/report"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect past runs",
	}
	historyCmd.AddCommand(newHistoryListCommand(ctx))
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func newHistoryListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRunTable(runs, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	return cmd
}

func renderRunTable(runs []history.Run, now time.Time) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortRunID(r.RunID),
			r.Command,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			r.Duration().Round(time.Millisecond).String(),
			strconv.Itoa(r.FilesMoved),
			humanize.Bytes(uint64(max(r.BytesMoved, 0))),
			strconv.Itoa(r.DuplicatesResolved),
			strconv.Itoa(r.Orphans),
			strconv.Itoa(r.Problems),
		})
	}
	return renderTable(
		[]string{"Run", "Command", "Started", "Took", "Moved", "Bytes", "Dupes", "Orphans", "Problems"},
		rows,
		3, 4, 5, 6, 7, 8,
	)
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the full report of one run (an unambiguous ID prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				rep, err := findRun(cmd, store, strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}
				return printReport(cmd, ctx, rep)
			})
		},
	}
}

func findRun(cmd *cobra.Command, store *history.Store, id string) (*report.Report, error) {
	if id == "" {
		return nil, errors.New("run id is required")
	}
	rep, err := store.Get(cmd.Context(), id)
	if err != nil || rep != nil {
		return rep, err
	}
	runs, err := store.List(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match string
	for _, r := range runs {
		if !strings.HasPrefix(r.RunID, id) {
			continue
		}
		if match != "" {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
		}
		match = r.RunID
	}
	if match == "" {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return store.Get(cmd.Context(), match)
}
