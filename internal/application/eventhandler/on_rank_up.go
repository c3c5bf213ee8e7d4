package eventhandler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// OnRankUpHandler counts rank transitions and, when a notifier is set,
// announces them.
type OnRankUpHandler struct {
	notifier RankUpNotifier
	metrics  MetricsRecorder
	logger   *slog.Logger
}

// NewOnRankUpHandler creates the handler. notifier and metrics may be nil.
func NewOnRankUpHandler(notifier RankUpNotifier, metrics MetricsRecorder, logger *slog.Logger) *OnRankUpHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnRankUpHandler{
		notifier: notifier,
		metrics:  metrics,
		logger:   logger.With("handler", "on_rank_up"),
	}
}

// Handle implements shared.EventHandler.
func (h *OnRankUpHandler) Handle(event shared.Event) error {
	ev, ok := event.(shared.RankUpEvent)
	if !ok {
		h.logger.Warn("received non-RankUpEvent", "event_type", event.EventType())
		return nil
	}

	to, ok := pet.RankByKey(ev.ToRank)
	if !ok {
		return fmt.Errorf("rank up for %s: unknown rank %q", ev.UserID, ev.ToRank)
	}
	from, ok := pet.RankByKey(ev.FromRank)
	if !ok {
		from = pet.Ranks[0]
	}

	h.logger.Info("pet ranked up",
		"user_id", ev.UserID,
		"from", from.Key,
		"to", to.Key,
		"bonus", ev.Bonus,
	)

	if h.metrics != nil {
		h.metrics.RecordRankUp(to.Key)
	}
	if h.notifier == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	if err := h.notifier.NotifyRankUp(ctx, ev.UserID, pet.RankUp{From: from, To: to, Bonus: ev.Bonus}); err != nil {
		return fmt.Errorf("notify rank up for %s: %w", ev.UserID, err)
	}
	return nil
}

// OnActionPerformedHandler counts successful actions.
type OnActionPerformedHandler struct {
	metrics MetricsRecorder
}

// NewOnActionPerformedHandler creates the handler.
func NewOnActionPerformedHandler(metrics MetricsRecorder) *OnActionPerformedHandler {
	return &OnActionPerformedHandler{metrics: metrics}
}

// Handle implements shared.EventHandler.
func (h *OnActionPerformedHandler) Handle(event shared.Event) error {
	ev, ok := event.(shared.ActionPerformedEvent)
	if !ok || h.metrics == nil {
		return nil
	}
	h.metrics.RecordAction(ev.Action)
	return nil
}
