package engine

import (
	"context"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// Buy purchases one unit of an item into the inventory. Nothing is
// consumed and no experience is granted until Use.
func (e *Engine) Buy(ctx context.Context, userID, itemKey string) (*Result, error) {
	item, err := pet.LookupItem(itemKey)
	if err != nil {
		return nil, err
	}

	out, err := e.run(ctx, request{
		op:     string(pet.ActionBuy),
		userID: userID,
		apply: func(rec *pet.Record, now time.Time) ([]shared.Event, error) {
			if err := pet.Purchase(rec, item); err != nil {
				return nil, err
			}
			return []shared.Event{
				shared.NewActionPerformedEvent(userID, string(pet.ActionBuy), item.Price, 0, now),
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	res := out.result(pet.ActionBuy)
	res.Cost = item.Price
	res.Item = &item
	return res, nil
}

// Use consumes one owned unit of an item. It is blocked while the pet sleeps.
func (e *Engine) Use(ctx context.Context, userID, itemKey string) (*Result, error) {
	item, err := pet.LookupItem(itemKey)
	if err != nil {
		return nil, err
	}

	out, err := e.run(ctx, request{
		op:     string(pet.ActionUse),
		userID: userID,
		apply: func(rec *pet.Record, now time.Time) ([]shared.Event, error) {
			if err := pet.CheckAwake(rec, now); err != nil {
				return nil, err
			}
			if err := pet.UseItem(rec, item); err != nil {
				return nil, err
			}
			return []shared.Event{
				shared.NewActionPerformedEvent(userID, string(pet.ActionUse), 0, item.XP, now),
			}, nil
		},
	})
	if err != nil {
		return nil, err
	}

	res := out.result(pet.ActionUse)
	res.Item = &item
	return res, nil
}

// InventoryResult lists owned items.
type InventoryResult struct {
	Record *pet.Record
	Items  []pet.InventoryEntry
	WokeUp bool
}

// Inventory returns the owned items in catalog order.
func (e *Engine) Inventory(ctx context.Context, userID string) (*InventoryResult, error) {
	out, err := e.run(ctx, request{op: "inventory", userID: userID})
	if err != nil {
		return nil, err
	}
	return &InventoryResult{
		Record: out.record,
		Items:  pet.InventoryList(out.record),
		WokeUp: out.woke,
	}, nil
}

// Shop returns the catalog after the lazy wake. Users without a pet may
// browse, so a missing record is not an error.
func (e *Engine) Shop(ctx context.Context, userID string) ([]pet.Item, error) {
	_, err := e.run(ctx, request{op: "shop", userID: userID})
	if err != nil && !shared.IsNotFound(err) {
		return nil, err
	}
	return pet.Catalog, nil
}
