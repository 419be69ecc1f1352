// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// UploadSweeper removes pending uploads past their retention window.
type UploadSweeper interface {
	SweepUploads(ctx context.Context) (int, error)
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	sweeper  UploadSweeper
	schedule string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a new job scheduler. schedule is a standard 5-field
// cron spec or a descriptor such as "@hourly".
func NewScheduler(sweeper UploadSweeper, schedule string, logger *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  5 * time.Minute,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.sweepUploads); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
		slog.String("sweep_schedule", s.schedule),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs. The returned context is done
// once running jobs have finished.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow triggers the upload sweep synchronously.
func (s *Scheduler) RunNow() {
	s.sweepUploads()
}

func (s *Scheduler) sweepUploads() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	removed, err := s.sweeper.SweepUploads(ctx)
	if err != nil {
		s.logger.Error("upload sweep failed",
			slog.Int("removed", removed),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Info("upload sweep completed", slog.Int("removed", removed))
}
