package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/external/telegram"
)

// ══════════════════════════════════════════════════════════════════════════════
// TELEGRAM WEBHOOK HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SecretTokenHeader carries the secret registered with setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// maxUpdateBytes bounds the request body. Updates are a few KB.
const maxUpdateBytes = 1 << 20

// UpdateProcessor handles one decoded update.
type UpdateProcessor interface {
	HandleUpdate(ctx context.Context, update *telegram.Update) error
}

// TelegramWebhook receives updates posted by Telegram.
type TelegramWebhook struct {
	processor UpdateProcessor
	secret    string
	logger    *slog.Logger
}

// NewTelegramWebhook creates the webhook endpoint. An empty secret disables
// the header check.
func NewTelegramWebhook(processor UpdateProcessor, secret string, logger *slog.Logger) *TelegramWebhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramWebhook{
		processor: processor,
		secret:    secret,
		logger:    logger.With("component", "webhook"),
	}
}

// ServeHTTP implements http.Handler.
func (h *TelegramWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			h.logger.Warn("webhook secret mismatch", "remote", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	var update telegram.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpdateBytes)).Decode(&update); err != nil {
		h.logger.Warn("invalid webhook payload", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.processor.HandleUpdate(r.Context(), &update); err != nil {
		// A non-2xx answer makes Telegram redeliver the same update.
		h.logger.Error("webhook update failed", "update_id", update.UpdateID, "error", err)
	}
	w.WriteHeader(http.StatusOK)
}
