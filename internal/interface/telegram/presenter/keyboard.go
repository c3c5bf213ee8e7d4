// Package presenter formats engine results for Telegram display:
// message texts, inline keyboards and rank images.
package presenter

import (
	"fmt"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// Transport-agnostic keyboards; the bot converts them to Bot API markup.
// ══════════════════════════════════════════════════════════════════════════════

// Callback data prefixes understood by the router.
const (
	// CallbackBuy is followed by an item key, e.g. "buy_mosca".
	CallbackBuy = "buy_"

	// CallbackCommand is followed by a command name, e.g. "cmd:alimentar".
	CallbackCommand = "cmd:"
)

// InlineKeyboard represents an inline keyboard.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton represents a single inline button.
type InlineButton struct {
	// Text is the button text.
	Text string

	// CallbackData is the callback data (for callback buttons).
	CallbackData string

	// URL is the URL to open (for URL buttons).
	URL string
}

// NewInlineKeyboard creates a new empty inline keyboard.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{
		Rows: make([][]InlineButton, 0),
	}
}

// AddRow adds a row of buttons.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// CallbackButton creates a callback button.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds inline keyboards for various handlers.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// ShopKeyboard has one buy button per catalog item, e.g. "🪰 Mosca (50)".
func (b *KeyboardBuilder) ShopKeyboard(items []pet.Item) *InlineKeyboard {
	kb := NewInlineKeyboard()
	for _, it := range items {
		kb.AddRow(CallbackButton(
			fmt.Sprintf("%s (%d)", it.Title(), it.Price),
			CallbackBuy+it.Key,
		))
	}
	return kb
}

// CareKeyboard offers the everyday actions under status and welcome messages.
func (b *KeyboardBuilder) CareKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("🍽️ Alimentar", CallbackCommand+"alimentar"),
			CallbackButton("🎮 Jugar", CallbackCommand+"jugar"),
		).
		AddRow(
			CallbackButton("💤 Dormir", CallbackCommand+"dormir"),
			CallbackButton("🛒 Tienda", CallbackCommand+"tienda"),
		)
}

// SleepingKeyboard is shown while the pet sleeps; only status makes sense.
func (b *KeyboardBuilder) SleepingKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(CallbackButton("📊 Estado", CallbackCommand+"estado"))
}

// BackToShopKeyboard follows a purchase so the user can keep shopping.
func (b *KeyboardBuilder) BackToShopKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("🛒 Seguir comprando", CallbackCommand+"tienda"),
			CallbackButton("🧺 Inventario", CallbackCommand+"inventario"),
		)
}
