package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// notifyTimeout bounds one proactive message.
const notifyTimeout = 15 * time.Second

// ═══════════════════════════════════════════════════════════════════════════
// ON PET WOKE UP HANDLER
// Sends "your pet woke up" once per sleep period, whichever wake path won.
// ═══════════════════════════════════════════════════════════════════════════

// OnPetWokeUpHandler notifies the owner when the pet wakes.
type OnPetWokeUpHandler struct {
	notifier WakeNotifier
	metrics  MetricsRecorder
	logger   *slog.Logger
}

// NewOnPetWokeUpHandler creates the handler. notifier and metrics may be nil.
func NewOnPetWokeUpHandler(notifier WakeNotifier, metrics MetricsRecorder, logger *slog.Logger) *OnPetWokeUpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnPetWokeUpHandler{
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With("handler", "on_pet_woke_up"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnPetWokeUpHandler) Handle(event shared.Event) error {
	woke, ok := event.(shared.PetWokeUpEvent)
	if !ok {
		h.logger.Warn("received non-PetWokeUpEvent", "event_type", event.EventType())
		return nil
	}

	if h.metrics != nil {
		h.metrics.RecordWake(woke.Source)
	}
	if h.notifier == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := h.notifier.NotifyWake(ctx, woke.UserID); err != nil {
		return fmt.Errorf("notify wake for %s: %w", woke.UserID, err)
	}

	h.logger.Debug("wake notice sent", "user_id", woke.UserID, "source", woke.Source, "epoch", woke.Epoch)
	return nil
}
