// Package eventhandler contains the reactions to pet domain events:
// proactive Telegram messages and metrics.
//
// Handlers run on the event bus after the record is saved and the user
// lock is released. A failed notification never reverts state; the bus
// logs the returned error and moves on.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// WakeNotifier tells a user that the pet woke up.
type WakeNotifier interface {
	NotifyWake(ctx context.Context, userID string) error
}

// RankUpNotifier announces a new rank to a user.
type RankUpNotifier interface {
	NotifyRankUp(ctx context.Context, userID string, up pet.RankUp) error
}

// MetricsRecorder receives pet activity counters.
type MetricsRecorder interface {
	RecordAction(action string)
	RecordRankUp(rank string)
	RecordWake(source string)
}

// Deps are the collaborators of the handlers.
type Deps struct {
	Wake WakeNotifier

	// RankUp is left nil when the chat layer announces rank-ups itself,
	// after its reply to the command that earned them.
	RankUp RankUpNotifier

	Metrics MetricsRecorder
	Logger  *slog.Logger
}

// Register subscribes every handler to the bus. Handlers whose dependency
// is missing are skipped.
func Register(sub shared.EventSubscriber, deps Deps) error {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	if deps.Wake != nil || deps.Metrics != nil {
		woke := NewOnPetWokeUpHandler(deps.Wake, deps.Metrics, deps.Logger)
		if err := sub.Subscribe(shared.EventPetWokeUp, woke.Handle); err != nil {
			return err
		}
	}
	if deps.RankUp != nil || deps.Metrics != nil {
		rank := NewOnRankUpHandler(deps.RankUp, deps.Metrics, deps.Logger)
		if err := sub.Subscribe(shared.EventRankUp, rank.Handle); err != nil {
			return err
		}
	}
	if deps.Metrics != nil {
		action := NewOnActionPerformedHandler(deps.Metrics)
		if err := sub.Subscribe(shared.EventActionPerformed, action.Handle); err != nil {
			return err
		}
	}
	return nil
}
