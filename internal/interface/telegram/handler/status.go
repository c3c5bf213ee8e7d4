package handler

import (
	"context"

	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// StatusReader reads a pet snapshot.
type StatusReader interface {
	Status(ctx context.Context, userID string) (*engine.StatusResult, error)
}

// StatusHandler handles /estado: the statistics under the picture of the
// current rank.
type StatusHandler struct {
	engine    StatusReader
	images    *presenter.Images
	keyboards *presenter.KeyboardBuilder
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(e StatusReader, images *presenter.Images, keyboards *presenter.KeyboardBuilder) *StatusHandler {
	return &StatusHandler{engine: e, images: images, keyboards: keyboards}
}

// Handle renders the pet statistics.
func (h *StatusHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	st, err := h.engine.Status(ctx, req.UserID)
	if err != nil {
		return errorResponse("", err)
	}

	resp := text(presenter.Status(st))
	if st.Asleep {
		resp.Keyboard = h.keyboards.SleepingKeyboard()
	} else {
		resp.Keyboard = h.keyboards.CareKeyboard()
	}
	if path, ok := h.images.RankImage(st.Rank); ok {
		resp.Photo = path
	}
	return resp, nil
}
