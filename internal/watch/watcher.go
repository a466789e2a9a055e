// Package watch keeps an output directory tidy between full runs. It listens
// for filesystem events and, once the directory has been quiet for the
// debounce interval, removes incomplete downloads and collapses numbered
// duplicates whose sibling exists.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"mediasync/internal/dedupe"
	"mediasync/internal/layout"
	"mediasync/internal/logging"
)

const defaultDebounce = 2 * time.Second

// Locker is satisfied by *flock.Flock. When set, a pass only runs if the lock
// is free, so the watcher never races a full reconciliation run.
type Locker interface {
	TryLock() (bool, error)
	Unlock() error
}

// Stats counts watcher activity.
type Stats struct {
	Events   int
	Passes   int
	Skipped  int
	Deleted  int
	Renamed  int
	Errors   int
	LastPass time.Time
}

// Watcher runs cleanup passes over one directory.
type Watcher struct {
	Dir            string
	TempExtensions []string
	Debounce       time.Duration
	Lock           Locker
	Logger         *slog.Logger
	// OnPass, when set, receives the result of every completed pass.
	OnPass func(dedupe.Result)

	mu    sync.Mutex
	stats Stats
}

// Run blocks until ctx is cancelled. A pass runs once at startup and then
// after every burst of events.
func (w *Watcher) Run(ctx context.Context) error {
	logger := logging.NewComponentLogger(w.Logger, "watch")
	if err := layout.RequireDir(w.Dir); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	logger.Info("watching directory",
		logging.String(logging.FieldDir, w.Dir),
		logging.Duration("debounce", w.debounce()),
	)

	if err := w.pass(ctx, logger); err != nil {
		return err
	}

	timer := time.NewTimer(w.debounce())
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher stopped", logging.String(logging.FieldDir, w.Dir))
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if !relevant(event) {
				continue
			}
			w.update(func(s *Stats) { s.Events++ })
			logger.Debug("filesystem event",
				logging.String("file", filepath.Base(event.Name)),
				logging.String("op", event.Op.String()),
			)
			timer.Reset(w.debounce())

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.update(func(s *Stats) { s.Errors++ })
			logging.WarnWithContext(logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some events may have been missed until the next pass"),
			)

		case <-timer.C:
			if err := w.pass(ctx, logger); err != nil {
				return err
			}
		}
	}
}

// Stats returns a copy of the activity counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) pass(ctx context.Context, logger *slog.Logger) error {
	if w.Lock != nil {
		locked, err := w.Lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !locked {
			w.update(func(s *Stats) { s.Skipped++ })
			logger.Info("run in progress, skipping cleanup pass",
				logging.String(logging.FieldEventType, "watch_pass_skipped"),
			)
			return nil
		}
		defer func() {
			if err := w.Lock.Unlock(); err != nil {
				logger.Warn("release lock", logging.Error(err))
			}
		}()
	}

	result, err := dedupe.CleanTemporary(ctx, w.Dir, w.TempExtensions, w.Logger)
	if err != nil {
		return w.passError(ctx, err)
	}
	quick, err := dedupe.QuickResolve(ctx, w.Dir, w.Logger)
	result.Merge(quick)
	if err != nil {
		return w.passError(ctx, err)
	}

	w.update(func(s *Stats) {
		s.Passes++
		s.Deleted += len(result.Deleted)
		s.Renamed += len(result.Renamed)
		s.Errors += len(result.Problems)
		s.LastPass = time.Now()
	})
	if result.Changed() > 0 {
		logger.Info("cleanup pass finished",
			logging.Int("deleted", len(result.Deleted)),
			logging.Int("renamed", len(result.Renamed)),
			logging.Int("problems", len(result.Problems)),
			logging.String(logging.FieldEventType, "watch_pass"),
		)
	}
	if w.OnPass != nil {
		w.OnPass(result)
	}
	return nil
}

// passError ignores cancellation so Run can exit through its select.
func (w *Watcher) passError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *Watcher) update(fn func(*Stats)) {
	w.mu.Lock()
	fn(&w.stats)
	w.mu.Unlock()
}

func (w *Watcher) debounce() time.Duration {
	if w.Debounce > 0 {
		return w.Debounce
	}
	return defaultDebounce
}

func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
		return false
	}
	name := filepath.Base(event.Name)
	return !layout.IsHidden(name) && !layout.IsLogFile(name)
}
