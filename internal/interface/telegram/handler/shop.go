package handler

import (
	"context"
	"strings"

	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHOP HANDLERS
// /tienda lists the catalog with buy buttons; /comprar and the buy_<item>
// buttons purchase; /usar consumes; /inventario lists.
// ══════════════════════════════════════════════════════════════════════════════

// Shopper is the part of the engine used by the shop handlers.
type Shopper interface {
	Shop(ctx context.Context, userID string) ([]pet.Item, error)
	Status(ctx context.Context, userID string) (*engine.StatusResult, error)
	Buy(ctx context.Context, userID, itemKey string) (*engine.Result, error)
	Use(ctx context.Context, userID, itemKey string) (*engine.Result, error)
	Inventory(ctx context.Context, userID string) (*engine.InventoryResult, error)
}

// ShopHandler handles /tienda.
type ShopHandler struct {
	engine    Shopper
	keyboards *presenter.KeyboardBuilder
}

// NewShopHandler creates a new ShopHandler.
func NewShopHandler(e Shopper, keyboards *presenter.KeyboardBuilder) *ShopHandler {
	return &ShopHandler{engine: e, keyboards: keyboards}
}

// Handle renders the catalog.
func (h *ShopHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	st, err := h.engine.Status(ctx, req.UserID)
	if err != nil && !shared.IsNotFound(err) {
		return errorResponse(pet.ActionBuy, err)
	}
	currency := -1
	if st != nil {
		currency = st.Record.Currency
	}

	items, err := h.engine.Shop(ctx, req.UserID)
	if err != nil {
		return errorResponse(pet.ActionBuy, err)
	}

	resp := text(presenter.Shop(currency))
	resp.Keyboard = h.keyboards.ShopKeyboard(items)
	return resp, nil
}

// BuyHandler handles /comprar <item> and the buy_<item> buttons.
type BuyHandler struct {
	engine    Shopper
	keyboards *presenter.KeyboardBuilder
}

// NewBuyHandler creates a new BuyHandler.
func NewBuyHandler(e Shopper, keyboards *presenter.KeyboardBuilder) *BuyHandler {
	return &BuyHandler{engine: e, keyboards: keyboards}
}

// Handle purchases one unit. From a button the shop message is edited in
// place.
func (h *BuyHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	key := strings.TrimSpace(req.Args)
	if req.IsCallback() {
		key = strings.TrimPrefix(req.CallbackData, presenter.CallbackBuy)
	}
	if key == "" {
		return text(presenter.BuyUsage()), nil
	}

	res, err := h.engine.Buy(ctx, req.UserID, key)
	if err != nil {
		resp, rerr := errorResponse(pet.ActionBuy, err)
		if resp != nil && req.IsCallback() {
			resp.Edit = true
			resp.CallbackText = firstLine(resp.Text)
			resp.Keyboard = h.keyboards.BackToShopKeyboard()
		}
		return resp, rerr
	}

	resp := text(presenter.Bought(res))
	resp.RankUp = res.RankUp
	if req.IsCallback() {
		resp.Edit = true
		resp.CallbackText = "✅ " + res.Item.Name
		resp.Keyboard = h.keyboards.BackToShopKeyboard()
	}
	return resp, nil
}

// UseHandler handles /usar <item>.
type UseHandler struct {
	engine Shopper
}

// NewUseHandler creates a new UseHandler.
func NewUseHandler(e Shopper) *UseHandler {
	return &UseHandler{engine: e}
}

// Handle consumes one unit of the item.
func (h *UseHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	key := strings.TrimSpace(req.Args)
	if key == "" {
		return text(presenter.UseUsage()), nil
	}

	res, err := h.engine.Use(ctx, req.UserID, key)
	if err != nil {
		return errorResponse(pet.ActionUse, err)
	}
	resp := text(presenter.Used(res))
	resp.RankUp = res.RankUp
	return resp, nil
}

// InventoryHandler handles /inventario.
type InventoryHandler struct {
	engine Shopper
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(e Shopper) *InventoryHandler {
	return &InventoryHandler{engine: e}
}

// Handle lists the owned items.
func (h *InventoryHandler) Handle(ctx context.Context, req Request) (*Response, error) {
	res, err := h.engine.Inventory(ctx, req.UserID)
	if err != nil {
		return errorResponse("", err)
	}
	return text(presenter.Inventory(res.Items)), nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
