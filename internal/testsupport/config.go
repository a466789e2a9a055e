package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"mediasync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test:
// base/work (with output/), base/storage, and base/logs. Orphans are never
// archived unless an option says otherwise.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkingDir = filepath.Join(base, "work")
	cfgVal.Paths.StorageDir = filepath.Join(base, "storage")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Archive.Orphans = config.OrphanPolicyNever
	cfgVal.Logging.RetentionDays = 0

	for _, dir := range []string{
		filepath.Join(cfgVal.Paths.WorkingDir, "output"),
		cfgVal.Paths.StorageDir,
		cfgVal.Paths.LogDir,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOrphanPolicy overrides archive.orphans on the test config.
func WithOrphanPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Orphans = policy
	}
}

// WithoutHistory disables the run history database.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithStubbedUnlocker writes a stub unlock binary that copies its -i input to
// the -o directory under the source stem plus ".mp3", and points
// unlock.binary at it. Inputs whose name contains "broken" exit non-zero.
func WithStubbedUnlocker() ConfigOption {
	return func(b *configBuilder) {
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte(`#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    -i) in="$2"; shift 2 ;;
    -o) out="$2"; shift 2 ;;
    *) shift ;;
  esac
done
case "$in" in
  *broken*) echo "unsupported container" >&2; exit 3 ;;
esac
name=$(basename "$in")
cp "$in" "$out/${name%.*}.mp3"
`)
		target := filepath.Join(binDir, "um")
		if err := os.WriteFile(target, script, 0o755); err != nil {
			b.t.Fatalf("write stub unlocker: %v", err)
		}
		b.cfg.Unlock.Binary = target
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkingDir)
}
