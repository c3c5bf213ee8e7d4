package engine

import (
	"context"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// Feed feeds the pet: the first meal of the day is free, the next ones
// cost FeedPolicy.Fee until the daily limit.
func (e *Engine) Feed(ctx context.Context, userID string) (*Result, error) {
	return e.limited(ctx, userID, pet.FeedPolicy)
}

// Play plays with the pet under PlayPolicy.
func (e *Engine) Play(ctx context.Context, userID string) (*Result, error) {
	return e.limited(ctx, userID, pet.PlayPolicy)
}

func (e *Engine) limited(ctx context.Context, userID string, p pet.Policy) (*Result, error) {
	var cost int
	out, err := e.run(ctx, request{
		op:     string(p.Action),
		userID: userID,
		apply: func(rec *pet.Record, now time.Time) ([]shared.Event, error) {
			if err := pet.CheckAwake(rec, now); err != nil {
				return nil, err
			}
			var err error
			cost, err = pet.PerformLimited(rec, p, timeutil.DayString(now))
			if err != nil {
				return nil, err
			}
			return []shared.Event{
				shared.NewActionPerformedEvent(userID, string(p.Action), cost, p.XP, now),
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	res := out.result(p.Action)
	res.Cost = cost
	res.UsesToday = pet.Count(out.record, p.Action, out.record.Daily.Date)
	return res, nil
}
