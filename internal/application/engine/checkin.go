package engine

import (
	"context"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// Checkin claims the daily reward. It works while the pet sleeps.
func (e *Engine) Checkin(ctx context.Context, userID string) (*Result, error) {
	out, err := e.run(ctx, request{
		op:     string(pet.ActionCheckin),
		userID: userID,
		apply: func(rec *pet.Record, now time.Time) ([]shared.Event, error) {
			if err := pet.Checkin(rec, timeutil.DayString(now)); err != nil {
				return nil, err
			}
			return []shared.Event{
				shared.NewActionPerformedEvent(userID, string(pet.ActionCheckin), 0, pet.CheckinXP, now),
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	res := out.result(pet.ActionCheckin)
	res.CurrencyGained = pet.CheckinCurrency
	return res, nil
}
