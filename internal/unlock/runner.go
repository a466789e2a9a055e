package unlock

import (
	"context"
	"log/slog"

	"mediasync/internal/dedupe"
	"mediasync/internal/layout"
	"mediasync/internal/ledger"
	"mediasync/internal/logging"
	"mediasync/internal/report"
)

// Failure is one source the tool could not convert.
type Failure struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Outcome summarizes a Runner pass.
type Outcome struct {
	Succeeded []string
	Failed    []Failure
	Dedupe    dedupe.Result
	Problems  []report.Problem
}

// Runner decrypts pending sources one at a time.
type Runner struct {
	Working   layout.Working
	Decrypter Decrypter
	Allow     layout.Extensions
	Logger    *slog.Logger
	// Progress, when set, is called before each source with its 1-based
	// position.
	Progress func(index, total int, name string)
}

// Run decrypts each source into output/. A failure is recorded in failed.log
// as "name (reason)", replacing an older entry for the same name, and the
// batch continues. After every source the lightweight duplicate pass runs so
// "(1)" copies never pile up between full runs.
func (r *Runner) Run(ctx context.Context, pending []layout.SourceItem) (Outcome, error) {
	logger := logging.NewComponentLogger(r.Logger, "unlock")
	var out Outcome
	outputDir := r.Working.Output()

	for i, src := range pending {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		if r.Progress != nil {
			r.Progress(i+1, len(pending), src.Name)
		}

		err := r.Decrypter.Decrypt(ctx, r.Working.SourcePath(src.Name), outputDir)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			out.Failed = append(out.Failed, Failure{Name: src.Name, Reason: err.Error()})
			logging.WarnWithContext(logger, "decryption failed", "unlock_failed",
				logging.String("source", src.Name),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the format is supported by the unlock binary"),
				logging.String(logging.FieldImpact, "source recorded in failed.log"),
			)
			if recErr := r.recordFailure(src.Name, err.Error()); recErr != nil {
				out.Problems = append(out.Problems,
					report.FromError("append", r.Working.FailedLog(), report.Wrap(report.ErrFilesystemOperation, "append", r.Working.FailedLog(), recErr)))
			}
		} else {
			out.Succeeded = append(out.Succeeded, src.Name)
			logger.Info("source decrypted",
				logging.String("source", src.Name),
				logging.Int("index", i+1),
				logging.Int("total", len(pending)),
				logging.String(logging.FieldEventType, "unlock_succeeded"),
			)
		}

		quick, err := dedupe.QuickResolve(ctx, outputDir, r.Logger)
		out.Dedupe.Merge(quick)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r *Runner) recordFailure(name, reason string) error {
	path := r.Working.FailedLog()
	failed, err := ledger.Load(path)
	if err != nil {
		return err
	}
	var next ledger.LogSet
	for _, line := range failed.Items() {
		if ledger.FailedName(line, r.Allow) == name {
			continue
		}
		next.Add(line)
	}
	next.Add(ledger.FailedEntry(name, reason))
	return next.Save(path)
}
