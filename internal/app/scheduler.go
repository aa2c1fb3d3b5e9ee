/**
 * @description
 * Cron scheduler for the cleanup task.
 */
package app

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/walletgate/confirmation-service/internal/config"
)

// Scheduler runs the periodic cleanup of stale unconfirmed accounts.
type Scheduler struct {
	cron     *cron.Cron
	workflow *Workflow
	logger   *slog.Logger
	config   config.Config
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(workflow *Workflow, logger *slog.Logger, cfg config.Config) *Scheduler {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Scheduler{
		cron:     c,
		workflow: workflow,
		logger:   logger,
		config:   cfg,
	}
}

// Start registers the cleanup job and starts the cron scheduler.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.config.CleanupJobSchedule, s.runCleanup); err != nil {
		s.logger.Error("failed to schedule cleanup job", "error", err)
	} else {
		s.logger.Info("scheduled cleanup job", "schedule", s.config.CleanupJobSchedule)
	}

	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runCleanup() {
	ctx := context.Background()
	if _, err := s.workflow.CleanupStaleUnconfirmed(ctx, s.logger); err != nil {
		s.logger.Error("cleanup job failed", "error", err)
	}
}
