package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// StartCommand adopts a pet for a user.
type StartCommand struct {
	UserID string

	// Name is the user's first name, stored for greetings.
	Name string
}

// Validate validates the command.
func (c StartCommand) Validate() error {
	if _, err := shared.NewUserID(c.UserID); err != nil {
		return err
	}
	return nil
}

// StartResult is the outcome of Start.
type StartResult struct {
	Record  *pet.Record
	Created bool
	WokeUp  bool
}

// Start creates the user's record if it does not exist. Calling it again
// returns the existing record, changed only by the lazy wake.
func (e *Engine) Start(ctx context.Context, cmd StartCommand) (*StartResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res, events, err := e.startLocked(ctx, cmd)
	e.publish(events)
	return res, err
}

func (e *Engine) startLocked(ctx context.Context, cmd StartCommand) (*StartResult, []shared.Event, error) {
	unlock, err := e.locker.Lock(ctx, cmd.UserID)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	_, err = e.repo.Get(ctx, cmd.UserID)
	if err == nil {
		out, events, err := e.process(ctx, request{op: "start", userID: cmd.UserID})
		if err != nil {
			return nil, nil, err
		}
		return &StartResult{Record: out.record, WokeUp: out.woke}, events, nil
	}
	if !errors.Is(err, shared.ErrUserNotInitialized) {
		return nil, nil, err
	}

	now := e.Now()
	rec := pet.NewRecord(shared.UserID(cmd.UserID), strings.TrimSpace(cmd.Name), now)
	if err := e.repo.Save(ctx, rec); err != nil {
		e.logger.Error("create pet failed", "user_id", cmd.UserID, "error", err)
		return nil, nil, err
	}

	e.logger.Info("pet created", "user_id", cmd.UserID)
	return &StartResult{Record: rec, Created: true},
		[]shared.Event{shared.NewPetCreatedEvent(cmd.UserID, rec.Name, now)}, nil
}
