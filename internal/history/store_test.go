package history_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mediasync/internal/history"
	"mediasync/internal/report"
	"mediasync/internal/testsupport"
)

func sampleReport(id string, started time.Time) *report.Report {
	r := report.New(id, "run", "/music/work", "/nas/music")
	r.StartedAt = started
	r.FinishedAt = started.Add(3 * time.Second)
	r.PairsMoved = 2
	r.OrphansMoved = 1
	r.BytesMoved = 4096
	r.DuplicatesDeleted = 1
	r.VariantsRenamed = 1
	r.RemainingFailures = 1
	r.Orphans = []string{"C.mp3"}
	r.Add(report.Problem{Kind: report.KindPartialPair, Op: "move", Path: "/w/output/P.mp3"})
	return r
}

func TestRecordAndList(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		if err := store.Record(ctx, sampleReport(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "run-2" || runs[1].RunID != "run-1" {
		t.Fatalf("unexpected listing %+v", runs)
	}
	got := runs[0]
	if got.FilesMoved != 5 || got.DuplicatesResolved != 2 || got.Orphans != 1 || got.Problems != 1 {
		t.Fatalf("unexpected counts %+v", got)
	}
	if got.Duration() != 3*time.Second {
		t.Fatalf("unexpected duration %s", got.Duration())
	}
	if got.StorageDir != "/nas/music" {
		t.Fatalf("unexpected storage dir %q", got.StorageDir)
	}
}

func TestGetRoundTripsReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	want := sampleReport("abc", time.Now().UTC())
	if err := store.Record(ctx, want); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.Count(report.KindPartialPair) != 1 || got.Orphans[0] != "C.mp3" {
		t.Fatalf("unexpected report %+v", got)
	}
	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown run, got %+v %v", missing, err)
	}
}

func TestPruneKeepsRecent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		if err := store.Record(ctx, sampleReport(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	removed, err := store.Prune(ctx, 2)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Fatalf("expected 3 pruned, got %d", removed)
	}
	runs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "r4" || runs[1].RunID != "r3" {
		t.Fatalf("unexpected remaining runs %+v", runs)
	}
	if n, _ := store.Prune(ctx, 0); n != 0 {
		t.Fatal("keep 0 must disable pruning")
	}
}

func TestReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.Record(context.Background(), sampleReport("persist", time.Now())); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := history.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.List(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %+v %v", runs, err)
	}
}
