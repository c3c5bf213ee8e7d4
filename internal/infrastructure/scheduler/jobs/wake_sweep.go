package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sweeper wakes pets whose deadline passed without a timer firing.
type Sweeper interface {
	SweepDue(ctx context.Context) (int, error)
}

// WakeSweepJob is the safety net for wake timers lost to a restart.
type WakeSweepJob struct {
	sweeper Sweeper
	logger  *slog.Logger
	timeout time.Duration
}

// NewWakeSweepJob creates the job.
func NewWakeSweepJob(sweeper Sweeper, logger *slog.Logger, timeout time.Duration) *WakeSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &WakeSweepJob{
		sweeper: sweeper,
		logger:  logger.With("job", "wake_sweep"),
		timeout: timeout,
	}
}

// Name returns the job name.
func (j *WakeSweepJob) Name() string {
	return "wake_sweep"
}

// Description returns a human-readable description.
func (j *WakeSweepJob) Description() string {
	return "Wakes sleeping pets whose wake time has passed"
}

// Run executes one sweep.
func (j *WakeSweepJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	n, err := j.sweeper.SweepDue(ctx)
	if err != nil {
		return fmt.Errorf("wake sweep: %w", err)
	}
	if n > 0 {
		j.logger.Info("woke overdue pets", "count", n)
	}
	return nil
}
