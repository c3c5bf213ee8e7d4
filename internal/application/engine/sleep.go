package engine

import (
	"context"
	"errors"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// Sleep puts the pet to sleep for pet.SleepDuration and arms the wake
// timer. While already asleep it fails with *pet.AsleepError carrying
// the remaining time.
func (e *Engine) Sleep(ctx context.Context, userID string) (*Result, error) {
	epoch := e.newEpoch()

	out, err := e.run(ctx, request{
		op:     string(pet.ActionSleep),
		userID: userID,
		apply: func(rec *pet.Record, now time.Time) ([]shared.Event, error) {
			if err := pet.StartSleep(rec, now, epoch); err != nil {
				return nil, err
			}
			return []shared.Event{
				shared.NewActionPerformedEvent(userID, string(pet.ActionSleep), 0, pet.SleepXP, now),
				shared.NewPetFellAsleepEvent(userID, epoch, *rec.Sleep.WakeAt, now),
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	wakeAt := *out.record.Sleep.WakeAt
	e.armTimer(userID, epoch, wakeAt)

	res := out.result(pet.ActionSleep)
	res.WakeAt = wakeAt
	return res, nil
}

func (e *Engine) armTimer(userID, epoch string, at time.Time) {
	if e.timers == nil {
		return
	}
	e.timers.Schedule(userID, epoch, at, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := e.Wake(ctx, userID); err != nil {
			e.logger.Error("wake timer failed", "user_id", userID, "epoch", epoch, "error", err)
		}
	})
}

// Wake is the eager wake path used by timers and the sweep job. It wakes
// the pet only if its deadline has passed and reports whether it did.
// Running it twice, or after a lazy wake, is a no-op.
func (e *Engine) Wake(ctx context.Context, userID string) (bool, error) {
	out, err := e.run(ctx, request{
		op:         "wake",
		userID:     userID,
		wakeSource: shared.WakeSourceTimer,
	})
	if err != nil {
		return false, err
	}
	return out.woke, nil
}

// SweepDue wakes every sleeper whose deadline has passed. It covers timers
// lost to a restart and returns how many pets were woken.
func (e *Engine) SweepDue(ctx context.Context) (int, error) {
	ids, err := e.repo.IDs(ctx)
	if err != nil {
		return 0, err
	}

	now := e.Now()
	woken := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return woken, err
		}

		rec, err := e.repo.Get(ctx, id)
		if err != nil {
			e.logger.Warn("sweep: load failed", "user_id", id, "error", err)
			continue
		}
		if !pet.IsAsleep(rec) || now.Before(*rec.Sleep.WakeAt) {
			continue
		}

		ok, err := e.Wake(ctx, id)
		if err != nil {
			e.logger.Error("sweep: wake failed", "user_id", id, "error", err)
			continue
		}
		if ok {
			woken++
		}
	}
	return woken, nil
}

// RearmTimers schedules wake timers for every pet that is still asleep.
// It is called once at startup.
func (e *Engine) RearmTimers(ctx context.Context) (int, error) {
	if e.timers == nil {
		return 0, nil
	}

	ids, err := e.repo.IDs(ctx)
	if err != nil {
		return 0, err
	}

	armed := 0
	for _, id := range ids {
		rec, err := e.repo.Get(ctx, id)
		if err != nil {
			if !errors.Is(err, shared.ErrUserNotInitialized) {
				e.logger.Warn("rearm: load failed", "user_id", id, "error", err)
			}
			continue
		}
		if !pet.IsAsleep(rec) {
			continue
		}
		e.armTimer(id, rec.Sleep.Epoch, *rec.Sleep.WakeAt)
		armed++
	}
	return armed, nil
}
