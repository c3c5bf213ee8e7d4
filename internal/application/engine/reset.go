package engine

import (
	"context"
	"errors"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// ResetReport summarises one daily reset run.
type ResetReport struct {
	Day    string
	Users  int
	Reset  int
	Failed int
}

// ResetDailyCounters sets every user's feed and play counters to zero for
// the current day. Each record is reset under its user lock, so a reset
// never overwrites a concurrent action. Failures on one user are logged
// and do not stop the run.
func (e *Engine) ResetDailyCounters(ctx context.Context) (*ResetReport, error) {
	ids, err := e.repo.IDs(ctx)
	if err != nil {
		return nil, err
	}

	now := e.Now()
	report := &ResetReport{Day: timeutil.DayString(now), Users: len(ids)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := e.resetOne(ctx, id, report.Day); err != nil {
			report.Failed++
			e.logger.Error("daily reset failed", "user_id", id, "error", err)
			continue
		}
		report.Reset++
	}

	e.logger.Info("daily reset finished",
		"day", report.Day,
		"users", report.Users,
		"reset", report.Reset,
		"failed", report.Failed,
	)
	e.publish([]shared.Event{shared.NewDailyResetEvent(report.Day, report.Users, report.Failed, now)})

	return report, nil
}

func (e *Engine) resetOne(ctx context.Context, userID, today string) error {
	unlock, err := e.locker.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := e.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrUserNotInitialized) {
			return nil
		}
		return err
	}

	pet.ResetDaily(rec, today)
	rec.UpdatedAt = e.Now()
	return e.repo.Save(ctx, rec)
}
