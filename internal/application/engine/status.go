package engine

import (
	"context"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// StatusResult is a snapshot of the pet for display.
type StatusResult struct {
	Record *pet.Record
	Rank   pet.Rank

	// Next is the following rank; HasNext is false at the top tier.
	Next    pet.Rank
	HasNext bool

	Asleep    bool
	WakeAt    time.Time
	Remaining time.Duration

	FeedsToday int
	PlaysToday int

	WokeUp bool
}

// Status reads the pet after applying the lazy wake.
func (e *Engine) Status(ctx context.Context, userID string) (*StatusResult, error) {
	out, err := e.run(ctx, request{op: "status", userID: userID})
	if err != nil {
		return nil, err
	}

	rec := out.record
	today := timeutil.DayString(out.now)
	res := &StatusResult{
		Record:     rec,
		Rank:       rec.Rank(),
		Asleep:     pet.IsAsleep(rec),
		Remaining:  pet.Remaining(rec, out.now),
		FeedsToday: pet.Count(rec, pet.ActionFeed, today),
		PlaysToday: pet.Count(rec, pet.ActionPlay, today),
		WokeUp:     out.woke,
	}
	res.Next, res.HasNext = pet.NextRank(rec.Experience)
	if res.Asleep {
		res.WakeAt = *rec.Sleep.WakeAt
	}
	return res, nil
}
