package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"mediasync/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	result := CheckDirectoryAccess("test", t.TempDir())
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if CheckDirectoryAccess("test", f).Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckBinary(t *testing.T) {
	present := filepath.Join(t.TempDir(), "um")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if r := CheckBinary("Unlock", present); !r.Passed {
		t.Fatalf("expected stub binary to resolve: %s", r.Detail)
	}
	if r := CheckBinary("Unlock", "clearly-not-present-binary"); r.Passed {
		t.Fatal("expected missing binary to fail")
	}
	if r := CheckBinary("Unlock", " "); r.Passed || r.Detail != "command not configured" {
		t.Fatalf("unexpected result for empty command: %+v", r)
	}
}

func TestRunAllMarksOptionalChecks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Unlock.Binary = "clearly-not-present-binary"
	if err := os.RemoveAll(cfg.Paths.StorageDir); err != nil {
		t.Fatal(err)
	}

	results := RunAll(cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 checks, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("optional failures must not count as required: %+v", failed)
	}

	cfg.Paths.WorkingDir = filepath.Join(t.TempDir(), "missing")
	if failed := Failed(RunAll(cfg)); len(failed) != 2 {
		t.Fatalf("expected working and output checks to fail, got %+v", failed)
	}
}
