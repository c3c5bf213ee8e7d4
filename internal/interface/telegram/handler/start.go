package handler

import (
	"context"

	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// Handles /start: adopts a pet on first use, greets the owner afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// Starter creates pets.
type Starter interface {
	Start(ctx context.Context, cmd engine.StartCommand) (*engine.StartResult, error)
}

// StartHandler handles the /start command.
type StartHandler struct {
	engine    Starter
	images    *presenter.Images
	keyboards *presenter.KeyboardBuilder
}

// NewStartHandler creates a new StartHandler with dependencies.
func NewStartHandler(e Starter, images *presenter.Images, keyboards *presenter.KeyboardBuilder) *StartHandler {
	return &StartHandler{
		engine:    e,
		images:    images,
		keyboards: keyboards,
	}
}

// Handle processes the /start command.
func (h *StartHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	res, err := h.engine.Start(ctx, engine.StartCommand{
		UserID: req.UserID,
		Name:   req.FirstName,
	})
	if err != nil {
		return errorResponse("", err)
	}

	resp := text(presenter.Welcome(res))
	resp.Keyboard = h.keyboards.CareKeyboard()
	if path, ok := h.images.RankImage(res.Record.Rank()); ok {
		resp.Photo = path
	}
	return resp, nil
}
