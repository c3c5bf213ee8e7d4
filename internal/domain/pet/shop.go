package pet

import (
	"sort"
	"strings"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SHOP CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Item is an entry of the shop catalog. Buying puts one unit into the
// inventory; its effect is applied only when the unit is used.
type Item struct {
	Key         string
	Name        string
	Emoji       string
	Price       int
	XP          int
	Energy      int // energy granted on use; MaxEnergy means full restore
	Description string
}

// Title returns the emoji and name.
func (i Item) Title() string {
	return i.Emoji + " " + i.Name
}

// Catalog is the immutable shop catalog in display order.
var Catalog = []Item{
	{Key: "mosca", Name: "Mosca", Emoji: "🪰", Price: 50, XP: 30, Description: "Un bocadillo rápido"},
	{Key: "mosquito", Name: "Mosquito", Emoji: "🦟", Price: 75, XP: 50, Description: "Crujiente y nutritivo"},
	{Key: "araña", Name: "Araña", Emoji: "🕷", Price: 100, XP: 100, Description: "Un manjar para ranas valientes"},
	{Key: "paseo", Name: "Paseo", Emoji: "🌿", Price: 100, XP: 45, Description: "Un paseo por el pantano"},
	{Key: "polillas", Name: "Polillas", Emoji: "🦋", Price: 125, XP: 50, Description: "Polillas de temporada"},
	{Key: "pocion", Name: "Poción", Emoji: "🧪", Price: 300, Energy: MaxEnergy, Description: "Restaura toda la energía"},
}

var keyFolder = strings.NewReplacer(
	" ", "", "_", "",
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
)

func foldKey(s string) string {
	return keyFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// LookupItem finds a catalog item. Matching ignores case, spaces and
// accents, so "Araña", "arana" and "ARAÑA" all resolve to araña.
func LookupItem(key string) (Item, error) {
	folded := foldKey(key)
	if folded == "" {
		return Item{}, shared.ErrInvalidItem
	}
	for _, it := range Catalog {
		if foldKey(it.Key) == folded {
			return it, nil
		}
	}
	return Item{}, shared.ErrInvalidItem
}

// ══════════════════════════════════════════════════════════════════════════════
// INVENTORY
// ══════════════════════════════════════════════════════════════════════════════

// Purchase buys one unit of item. On ErrInsufficientFunds the record is untouched.
func Purchase(r *Record, item Item) error {
	if err := r.Spend(item.Price); err != nil {
		return err
	}
	if r.Inventory == nil {
		r.Inventory = map[string]int{}
	}
	r.Inventory[item.Key]++
	return nil
}

// UseItem consumes one owned unit of item and applies its effect.
// Counts that reach zero are removed from the inventory.
func UseItem(r *Record, item Item) error {
	if r.Inventory[item.Key] <= 0 {
		return shared.ErrItemNotOwned
	}
	r.Inventory[item.Key]--
	if r.Inventory[item.Key] == 0 {
		delete(r.Inventory, item.Key)
	}

	if item.Energy >= MaxEnergy {
		r.RestoreEnergy()
	} else {
		r.GainEnergy(item.Energy)
	}
	r.GainExperience(item.XP)
	return nil
}

// InventoryEntry is one owned item with its count.
type InventoryEntry struct {
	Item  Item
	Count int
}

// InventoryList returns the owned items in catalog order. Keys that are no
// longer in the catalog are listed last with a bare item.
func InventoryList(r *Record) []InventoryEntry {
	var out []InventoryEntry
	seen := make(map[string]bool, len(r.Inventory))
	for _, it := range Catalog {
		if n := r.Inventory[it.Key]; n > 0 {
			out = append(out, InventoryEntry{Item: it, Count: n})
			seen[it.Key] = true
		}
	}

	var unknown []string
	for k, n := range r.Inventory {
		if n > 0 && !seen[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		out = append(out, InventoryEntry{Item: Item{Key: k, Name: k}, Count: r.Inventory[k]})
	}
	return out
}
