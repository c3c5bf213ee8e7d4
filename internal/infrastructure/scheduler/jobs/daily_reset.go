// Package jobs contains the scheduled jobs of the Pepegotchi bot.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY RESET JOB
// ══════════════════════════════════════════════════════════════════════════════

// Resetter resets the daily counters of every user.
type Resetter interface {
	ResetDailyCounters(ctx context.Context) (*engine.ResetReport, error)
}

// DailyResetJob zeroes feed and play counters at local midnight.
type DailyResetJob struct {
	resetter Resetter
	logger   *slog.Logger
	config   DailyResetConfig
	onReport func(*engine.ResetReport)

	lastReport atomic.Pointer[engine.ResetReport]
}

// DailyResetConfig contains configuration for the reset job.
type DailyResetConfig struct {
	// Timeout is the maximum duration of one run.
	Timeout time.Duration

	// FailOnPartial makes a run with per-user failures report an error.
	FailOnPartial bool
}

// DefaultDailyResetConfig returns sensible defaults.
func DefaultDailyResetConfig() DailyResetConfig {
	return DailyResetConfig{
		Timeout:       10 * time.Minute,
		FailOnPartial: true,
	}
}

// NewDailyResetJob creates the job. onReport, if set, is called after
// every successful run.
func NewDailyResetJob(resetter Resetter, logger *slog.Logger, config DailyResetConfig, onReport func(*engine.ResetReport)) *DailyResetJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDailyResetConfig().Timeout
	}
	return &DailyResetJob{
		resetter: resetter,
		logger:   logger.With("job", "daily_reset"),
		config:   config,
		onReport: onReport,
	}
}

// Name returns the job name.
func (j *DailyResetJob) Name() string {
	return "daily_reset"
}

// Description returns a human-readable description.
func (j *DailyResetJob) Description() string {
	return "Resets feed and play counters of every pet at local midnight"
}

// Run executes the reset.
func (j *DailyResetJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	report, err := j.resetter.ResetDailyCounters(ctx)
	if err != nil {
		return fmt.Errorf("daily reset: %w", err)
	}

	j.lastReport.Store(report)
	if j.onReport != nil {
		j.onReport(report)
	}

	if report.Failed > 0 && j.config.FailOnPartial {
		return fmt.Errorf("daily reset: %d of %d users failed", report.Failed, report.Users)
	}
	return nil
}

// LastReport returns the report of the last completed run, or nil.
func (j *DailyResetJob) LastReport() *engine.ResetReport {
	return j.lastReport.Load()
}
