package handler

import (
	"context"

	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// CARE HANDLERS
// /alimentar, /jugar, /dormir and /checkin. Each one is a single engine call.
// ══════════════════════════════════════════════════════════════════════════════

// actionFunc is one engine operation on a user.
type actionFunc func(ctx context.Context, userID string) (*engine.Result, error)

// ActionHandler runs an engine action and renders its result.
type ActionHandler struct {
	action pet.Action
	run    actionFunc
	render func(*engine.Result) string
}

// Carer is the part of the engine used by the care handlers.
type Carer interface {
	Feed(ctx context.Context, userID string) (*engine.Result, error)
	Play(ctx context.Context, userID string) (*engine.Result, error)
	Sleep(ctx context.Context, userID string) (*engine.Result, error)
	Checkin(ctx context.Context, userID string) (*engine.Result, error)
}

// NewFeedHandler handles /alimentar.
func NewFeedHandler(e Carer) *ActionHandler {
	return &ActionHandler{action: pet.ActionFeed, run: e.Feed, render: presenter.Feed}
}

// NewPlayHandler handles /jugar.
func NewPlayHandler(e Carer) *ActionHandler {
	return &ActionHandler{action: pet.ActionPlay, run: e.Play, render: presenter.Play}
}

// NewSleepHandler handles /dormir.
func NewSleepHandler(e Carer) *ActionHandler {
	return &ActionHandler{action: pet.ActionSleep, run: e.Sleep, render: presenter.Sleep}
}

// NewCheckinHandler handles /checkin.
func NewCheckinHandler(e Carer) *ActionHandler {
	return &ActionHandler{action: pet.ActionCheckin, run: e.Checkin, render: presenter.Checkin}
}

// Action returns the action this handler performs.
func (h *ActionHandler) Action() pet.Action {
	return h.action
}

// Handle runs the action.
func (h *ActionHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	res, err := h.run(ctx, req.UserID)
	if err != nil {
		return errorResponse(h.action, err)
	}
	resp := text(h.render(res))
	resp.RankUp = res.RankUp
	return resp, nil
}
