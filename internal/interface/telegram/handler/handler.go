// Package handler contains Telegram command handlers.
// Each handler follows the pattern: receive request → call the engine →
// format the response with the presenter.
package handler

import (
	"context"
	"errors"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// ParseModeHTML is the parse mode of every response.
const ParseModeHTML = "HTML"

// Outcomes reported to command metrics.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected" // a game rule said no: limit, funds, asleep...
	OutcomeError    = "error"
)

// Request is a parsed command or callback.
type Request struct {
	// UserID is the Telegram user id in decimal.
	UserID string

	// FirstName is the user's first name from Telegram.
	FirstName string

	// ChatID is the chat to reply to.
	ChatID int64

	// MessageID is the message that carried the command, or the message
	// holding the keyboard for callbacks.
	MessageID int64

	// Command is the command name without slash (callbacks: empty).
	Command string

	// Args is the text after the command.
	Args string

	// CallbackData is set for callback queries.
	CallbackData string
}

// IsCallback reports whether the request comes from an inline button.
func (r Request) IsCallback() bool {
	return r.CallbackData != ""
}

// Response is what the bot sends back.
type Response struct {
	// Text is the message text (HTML formatted). With Photo set it is the
	// caption.
	Text string

	// ParseMode is the parse mode (HTML).
	ParseMode string

	// Keyboard is the inline keyboard to attach.
	Keyboard *presenter.InlineKeyboard

	// Photo is a local image path. If the upload fails the bot sends Text
	// as a plain message.
	Photo string

	// Edit replaces the text of the originating message (callbacks).
	Edit bool

	// CallbackText is shown as a toast when answering a callback query.
	CallbackText string

	// RankUp is announced right after the reply.
	RankUp *pet.RankUp

	// Outcome is reported to metrics.
	Outcome string
}

// Handler processes one request.
type Handler interface {
	Handle(ctx context.Context, req Request) (*Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (*Response, error)

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// text builds a plain HTML response.
func text(s string) *Response {
	return &Response{Text: s, ParseMode: ParseModeHTML, Outcome: OutcomeOK}
}

// errorResponse renders rule violations and store failures for the user.
// Unexpected errors are returned so the caller logs them and apologises.
func errorResponse(action pet.Action, err error) (*Response, error) {
	msg, known := presenter.ErrorMessage(action, err)
	if !known {
		return nil, err
	}
	outcome := OutcomeRejected
	if errors.Is(err, shared.ErrPersistence) {
		outcome = OutcomeError
	}
	return &Response{Text: msg, ParseMode: ParseModeHTML, Outcome: outcome}, nil
}
