package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/external/telegram"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFIER
// Proactive messages that are not a reply to a command: the wake notice and
// the rank-up announcement.
// ══════════════════════════════════════════════════════════════════════════════

// Notifier sends proactive messages. In a private chat the chat id equals
// the user id, so the record key is enough to address the owner.
type Notifier struct {
	api    API
	images *presenter.Images
	logger *slog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(api API, images *presenter.Images, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		api:    api,
		images: images,
		logger: logger.With("component", "notifier"),
	}
}

// NotifyWake tells the owner the pet woke up.
func (n *Notifier) NotifyWake(ctx context.Context, userID string) error {
	chatID, err := shared.UserID(userID).ChatID()
	if err != nil {
		return err
	}
	_, err = n.api.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    chatID,
		Text:      presenter.WakeNoticeText,
		ParseMode: telegram.ParseModeHTML,
	})
	if err != nil && telegram.IsUserBlocked(err) {
		n.logger.Debug("wake notice skipped, bot blocked", "user_id", userID)
		return nil
	}
	return err
}

// NotifyRankUp announces a new rank to the owner.
func (n *Notifier) NotifyRankUp(ctx context.Context, userID string, up pet.RankUp) error {
	chatID, err := shared.UserID(userID).ChatID()
	if err != nil {
		return err
	}
	return n.AnnounceRankUp(ctx, chatID, up)
}

// AnnounceRankUp sends "✨ Evolucionando..." followed by the picture of the
// new rank with its caption. Without a usable picture the caption goes out
// as text.
func (n *Notifier) AnnounceRankUp(ctx context.Context, chatID int64, up pet.RankUp) error {
	if _, err := n.api.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    chatID,
		Text:      presenter.EvolvingText,
		ParseMode: telegram.ParseModeHTML,
	}); err != nil {
		return fmt.Errorf("send evolving notice: %w", err)
	}

	caption := presenter.RankUp(up)
	if path, ok := n.images.RankImage(up.To); ok {
		_, err := n.api.SendPhoto(ctx, telegram.SendPhotoParams{
			ChatID:    chatID,
			Path:      path,
			Caption:   caption,
			ParseMode: telegram.ParseModeHTML,
		})
		if err == nil {
			return nil
		}
		n.logger.Warn("rank photo failed, sending text", "chat_id", chatID, "rank", up.To.Key, "error", err)
	}

	_, err := n.api.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:    chatID,
		Text:      caption,
		ParseMode: telegram.ParseModeHTML,
	})
	return err
}
