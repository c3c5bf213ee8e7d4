package handler

import (
	"context"

	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// HelpHandler handles /ayuda. It needs no pet.
type HelpHandler struct{}

// NewHelpHandler creates a new HelpHandler.
func NewHelpHandler() *HelpHandler {
	return &HelpHandler{}
}

// Handle returns the command list.
func (h *HelpHandler) Handle(_ context.Context, _ Request) (*Response, error) {
	return text(presenter.Help()), nil
}

// EventHandler handles /evento, a placeholder for future events.
type EventHandler struct{}

// NewEventHandler creates a new EventHandler.
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// Handle returns the placeholder text.
func (h *EventHandler) Handle(_ context.Context, _ Request) (*Response, error) {
	return text(presenter.Event()), nil
}
