package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"mediasync/internal/report"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 22

// problemKinds lists every reported category in summary order.
var problemKinds = []struct {
	kind   report.Kind
	label  string
	status statusKind
}{
	{report.KindMissingDirectory, "Missing directories", statusError},
	{report.KindPartialPair, "Partial pairs", statusError},
	{report.KindFilesystem, "Filesystem failures", statusWarn},
	{report.KindMissingSource, "Missing sources", statusWarn},
	{report.KindOrphan, "Orphans", statusWarn},
}

func printReport(cmd *cobra.Command, ctx *commandContext, rep *report.Report) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, rep)
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderReport(rep, shouldColorize(out)))
	return nil
}

func renderReport(rep *report.Report, colorize bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (%s) finished in %s\n", shortRunID(rep.RunID), rep.Command, rep.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Working: %s\n", rep.WorkingDir)
	if rep.StorageDir != "" {
		fmt.Fprintf(&b, "Storage: %s\n", rep.StorageDir)
	}

	rows := [][]string{
		{"Duplicates resolved", fmt.Sprintf("%d (%d deleted, %d renamed)", rep.DuplicatesResolved(), rep.DuplicatesDeleted, rep.VariantsRenamed)},
		{"Incomplete downloads", strconv.Itoa(rep.TempRemoved)},
		{"Sources / converted", fmt.Sprintf("%d / %d", rep.Sources, rep.Derived)},
		{"Matched", strconv.Itoa(rep.Matched)},
	}
	if rep.Command == "unlock" {
		rows = append(rows, []string{"Unlocked", fmt.Sprintf("%d (%d failed)", rep.Unlocked, rep.UnlockFailed)})
	}
	if rep.ArchiveRan {
		rows = append(rows,
			[]string{"Pairs archived", fmt.Sprintf("%d (%d files, %s)", rep.PairsMoved, rep.FilesMoved(), humanize.Bytes(uint64(max(rep.BytesMoved, 0))))},
			[]string{"Orphans archived", strconv.Itoa(rep.OrphansMoved)},
			[]string{"Completed repaired", strconv.Itoa(rep.Repaired)},
		)
	}
	rows = append(rows,
		[]string{"processed.log", fmt.Sprintf("%d entries", rep.Processed)},
		[]string{"failed.log", fmt.Sprintf("%d purged, %d remaining", rep.FailedPurged, rep.RemainingFailures)},
	)
	b.WriteString(renderTable([]string{"Step", "Result"}, rows))
	b.WriteByte('\n')

	problems := 0
	for _, pk := range problemKinds {
		count := rep.Count(pk.kind)
		if count == 0 {
			continue
		}
		problems += count
		b.WriteString(renderStatusLine(pk.label, pk.status, strconv.Itoa(count), colorize))
		b.WriteByte('\n')
	}
	if problems == 0 {
		b.WriteString(renderStatusLine("Problems", statusOK, "none", colorize))
		b.WriteByte('\n')
		return b.String()
	}

	for _, p := range rep.Problems {
		if p.Kind == report.KindOrphan {
			continue
		}
		fmt.Fprintf(&b, "  - %s: %s\n", p.Kind, p.Detail)
	}
	if len(rep.Orphans) > 0 {
		b.WriteString("Orphans left in output/:\n")
		for _, name := range rep.Orphans {
			fmt.Fprintf(&b, "  - %s\n", name)
		}
	}
	return b.String()
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	base := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, label+":", statusKindLabel(kind), message)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
