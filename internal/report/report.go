// Package report defines the error kinds, per-item problems, and the per-run
// summary that every reconciliation step feeds.
//
// Steps never abort a run for a single file. They return explicit results
// whose problems are collected here, so the end-of-run summary can enumerate
// every category and nothing is silently dropped.
package report

import (
	"errors"
	"time"
)

// Problem is one per-item condition worth showing to the operator.
type Problem struct {
	Kind   Kind   `json:"kind"`
	Op     string `json:"op"`
	Path   string `json:"path"`
	Detail string `json:"detail,omitempty"`
}

// FromError converts a wrapped error into a Problem.
func FromError(op, path string, err error) Problem {
	p := Problem{Kind: KindOf(err), Op: op, Path: path}
	if err != nil {
		p.Detail = err.Error()
	}
	return p
}

// Err returns the problem as an error classified by its kind.
func (p Problem) Err() error {
	var marker error
	switch p.Kind {
	case KindMissingDirectory:
		marker = ErrMissingDirectory
	case KindPartialPair:
		marker = ErrPartialPair
	case KindOrphan:
		marker = ErrOrphan
	case KindMissingSource:
		marker = ErrMissingSource
	default:
		marker = ErrFilesystemOperation
	}
	var cause error
	if p.Detail != "" {
		cause = errors.New(p.Detail)
	}
	return Wrap(marker, p.Op, p.Path, cause)
}

// Report aggregates one reconciliation run.
type Report struct {
	RunID      string    `json:"run_id"`
	Command    string    `json:"command"`
	WorkingDir string    `json:"working_dir"`
	StorageDir string    `json:"storage_dir,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	DuplicatesDeleted int `json:"duplicates_deleted"`
	VariantsRenamed   int `json:"variants_renamed"`
	TempRemoved       int `json:"temp_removed"`

	Sources   int `json:"sources"`
	Derived   int `json:"derived"`
	Matched   int `json:"matched"`
	Processed int `json:"processed"`

	FailedPurged      int `json:"failed_purged"`
	RemainingFailures int `json:"remaining_failures"`

	ArchiveRan   bool  `json:"archive_ran"`
	PairsMoved   int   `json:"pairs_moved"`
	OrphansMoved int   `json:"orphans_moved"`
	BytesMoved   int64 `json:"bytes_moved"`
	Repaired     int   `json:"repaired"`

	Unlocked     int `json:"unlocked,omitempty"`
	UnlockFailed int `json:"unlock_failed,omitempty"`

	Orphans  []string  `json:"orphans"`
	Problems []Problem `json:"problems"`
}

// New starts a report for a run.
func New(runID, command, workingDir, storageDir string) *Report {
	return &Report{
		RunID:      runID,
		Command:    command,
		WorkingDir: workingDir,
		StorageDir: storageDir,
		StartedAt:  time.Now().UTC(),
		Orphans:    []string{},
		Problems:   []Problem{},
	}
}

// Add records problems.
func (r *Report) Add(problems ...Problem) {
	r.Problems = append(r.Problems, problems...)
}

// Count returns the number of recorded problems of kind.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, p := range r.Problems {
		if p.Kind == kind {
			n++
		}
	}
	return n
}

// FilesMoved is the number of individual files relocated to storage.
func (r *Report) FilesMoved() int {
	return r.PairsMoved*2 + r.OrphansMoved
}

// DuplicatesResolved is the number of numbered variants collapsed.
func (r *Report) DuplicatesResolved() int {
	return r.DuplicatesDeleted + r.VariantsRenamed
}

// Finish stamps the end time.
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
