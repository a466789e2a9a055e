package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"mediasync/internal/config"
	"mediasync/internal/history"
	"mediasync/internal/logging"
	"mediasync/internal/prompt"
	"mediasync/internal/reconcile"
)

// session carries the per-invocation run ID, logger, and history store.
type session struct {
	cfg     *config.Config
	runID   string
	logger  *slog.Logger
	logPath string
	history *history.Store
}

func openSession(cfg *config.Config) (*session, error) {
	runID := uuid.NewString()
	logger, logPath, err := logging.NewFromConfig(cfg, runID)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	s := &session{cfg: cfg, runID: runID, logger: logger, logPath: logPath}
	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run will not be recorded"),
			)
		} else {
			s.history = store
		}
	}
	return s, nil
}

func (s *session) workflow(p *prompt.Prompter) *reconcile.Workflow {
	wf := &reconcile.Workflow{
		Config:         s.cfg,
		Logger:         s.logger,
		ConfirmOrphans: p.ConfirmOrphans,
	}
	if s.history != nil {
		wf.History = s.history
	}
	return wf
}

func (s *session) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Warn("failed to close run history", logging.Error(err))
		}
	}
}
