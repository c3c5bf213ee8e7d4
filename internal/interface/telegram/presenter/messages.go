package presenter

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATIC TEXTS
// Every text is HTML (parse mode "HTML").
// ══════════════════════════════════════════════════════════════════════════════

const (
	// NotStartedText asks users without a pet to run /start.
	NotStartedText = "Primero inicia tu Pepegotchi con /start"

	// WakeNoticeText is sent when a sleeping pet wakes up.
	WakeNoticeText = "☀️ Tu Pepegotchi ha despertado, ¡es hora de comer y jugar! 🐸"

	// EvolvingText precedes a rank-up announcement.
	EvolvingText = "✨ Evolucionando..."

	// GenericErrorText is shown for failures the user cannot act on.
	GenericErrorText = "😔 Algo salió mal. Inténtalo de nuevo en unos minutos."

	// PersistenceFailureText is shown when the pet could not be loaded or
	// saved. Nothing was applied, so the command can be repeated.
	PersistenceFailureText = "💾 No pude guardar los datos de tu Pepegotchi. Intenta de nuevo en un momento."

	// RateLimitedText is shown when a user sends commands too fast.
	RateLimitedText = "⏳ ¡Más despacio! Tu Pepegotchi necesita un respiro. Inténtalo en unos segundos."

	// UnknownCommandText answers commands the bot does not know.
	UnknownCommandText = "🤔 No conozco ese comando. Usa /ayuda para ver la lista."
)

// Help returns the command list.
func Help() string {
	return "📜 <b>Lista de comandos disponibles:</b>\n\n" +
		"🐸 /start - Inicia tu aventura con Pepegotchi\n" +
		"🍽️ /alimentar - Alimenta a tu Pepegotchi\n" +
		"🎮 /jugar - Juega con tu Pepegotchi\n" +
		"💤 /dormir - Envía a dormir a tu Pepegotchi (6h)\n" +
		"🛒 /tienda - Muestra la tienda con ítems\n" +
		"💰 /comprar &lt;ítem&gt; - Compra un ítem de la tienda\n" +
		"🎒 /usar &lt;ítem&gt; - Usa un ítem de tu inventario\n" +
		"🧺 /inventario - Mira lo que tienes guardado\n" +
		"🎁 /checkin - Reclama tu recompensa diaria\n" +
		"🎉 /evento - Muestra los eventos y sorpresas (¡próximamente!)\n" +
		"📊 /estado - Ver estadísticas de tu Pepegotchi\n"
}

// Event returns the events placeholder.
func Event() string {
	return "🎉 Próximamente tendremos <b>eventos y sorpresas</b> para ti 💚\n" +
		"¡Mantente atento a las novedades!"
}

// UseUsage explains /usar.
func UseUsage() string {
	return "❗ Usa <code>/usar &lt;nombre&gt;</code>. Ejemplo: <code>/usar mosca</code>"
}

// BuyUsage explains /comprar.
func BuyUsage() string {
	return "❗ Usa <code>/comprar &lt;nombre&gt;</code>. Ejemplo: <code>/comprar mosca</code>\n" +
		"También puedes usar los botones de /tienda."
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// Welcome greets a new or returning user.
func Welcome(res *engine.StartResult) string {
	rec := res.Record
	name := rec.Name
	if name == "" {
		name = "amigo"
	}

	var b strings.Builder
	if res.Created {
		fmt.Fprintf(&b, "🐸 ¡Hola %s! Bienvenido a <b>Pepegotchi Bot</b> 💚\n\n", html.EscapeString(name))
		b.WriteString("✨ Cuida, alimenta y haz crecer a tu Pepegotchi.\n")
	} else {
		fmt.Fprintf(&b, "🐸 ¡Hola de nuevo %s! Tu Pepegotchi te estaba esperando 💚\n\n", html.EscapeString(name))
	}
	fmt.Fprintf(&b, "💰 Monedas: %d\n", rec.Currency)
	fmt.Fprintf(&b, "⭐ XP: %d\n", rec.Experience)
	fmt.Fprintf(&b, "🏅 Rango: %s\n", rec.Rank().Title())
	if rec.Code != "" {
		fmt.Fprintf(&b, "🔑 Código: <code>%s</code>\n", html.EscapeString(rec.Code))
	}
	b.WriteString("\nUsa /ayuda para ver todos los comandos disponibles.")
	return b.String()
}

// Feed renders a successful feed.
func Feed(res *engine.Result) string {
	if res.Cost == 0 {
		return fmt.Sprintf("🍎 Alimentaste a tu Pepegotchi gratis por hoy 💕 (+%d XP, +%d ⚡)", res.XPGained, res.EnergyGained)
	}
	return fmt.Sprintf("🍔 Alimentaste a tu Pepegotchi pagando %d monedas 💰 (+%d XP, +%d ⚡)\n%s",
		res.Cost, res.XPGained, res.EnergyGained, usesLeft(res.UsesToday, pet.FeedPolicy))
}

// Play renders a successful play.
func Play(res *engine.Result) string {
	if res.Cost == 0 {
		return fmt.Sprintf("🎲 Jugaste gratis con tu Pepegotchi por hoy 🎉 (+%d XP)", res.XPGained)
	}
	return fmt.Sprintf("🎯 Jugaste pagando %d monedas 💰 (+%d XP)\n%s",
		res.Cost, res.XPGained, usesLeft(res.UsesToday, pet.PlayPolicy))
}

func usesLeft(used int, p pet.Policy) string {
	left := p.DailyLimit - used
	if left <= 0 {
		return "Es la última vez por hoy."
	}
	return fmt.Sprintf("Te quedan %d por hoy (%d monedas cada una).", left, p.Fee)
}

// Sleep renders the start of a sleep period.
func Sleep(res *engine.Result) string {
	return fmt.Sprintf("💤 Tu Pepegotchi se ha dormido bajo la luna 🌙 +%d XP\nVolverá en %d horas 🕓",
		res.XPGained, int(pet.SleepDuration/time.Hour))
}

// Checkin renders the daily reward.
func Checkin(res *engine.Result) string {
	return fmt.Sprintf("🎁 ¡Recompensa diaria reclamada! +%d XP y +%d monedas 💰", res.XPGained, res.CurrencyGained)
}

// Shop renders the catalog header. currency is negative for users without
// a pet.
func Shop(currency int) string {
	var b strings.Builder
	b.WriteString("🛒 <b>Tienda Pepegotchi</b>\n\n")
	if currency >= 0 {
		fmt.Fprintf(&b, "Tienes 💰 %d monedas\n\n", currency)
	}
	for _, it := range pet.Catalog {
		fmt.Fprintf(&b, "%s — %d 💰 · %s\n", it.Title(), it.Price, itemEffect(it))
	}
	b.WriteString("\nElige un artículo abajo:")
	return b.String()
}

func itemEffect(it pet.Item) string {
	if it.Energy >= pet.MaxEnergy {
		return "energía al 100%"
	}
	parts := make([]string, 0, 2)
	if it.XP > 0 {
		parts = append(parts, fmt.Sprintf("+%d XP", it.XP))
	}
	if it.Energy > 0 {
		parts = append(parts, fmt.Sprintf("+%d ⚡", it.Energy))
	}
	return strings.Join(parts, " ")
}

// Bought renders a purchase. Items go to the inventory until used.
func Bought(res *engine.Result) string {
	return fmt.Sprintf("🎉 Compraste <b>%s</b> por %d monedas.\n"+
		"🧺 Está en tu inventario, úsalo con <code>/usar %s</code>\n"+
		"Monedas restantes: %d 💰",
		res.Item.Title(), res.Cost, res.Item.Key, res.Record.Currency)
}

// Used renders the consumption of an item.
func Used(res *engine.Result) string {
	if res.Item.Energy >= pet.MaxEnergy {
		return "🧪 Tu Pepegotchi recuperó toda su energía 💪"
	}
	return fmt.Sprintf("✨ Usaste %s y ganaste +%d XP", res.Item.Title(), res.XPGained)
}

// Inventory renders the owned items.
func Inventory(items []pet.InventoryEntry) string {
	if len(items) == 0 {
		return "🧺 Tu inventario está vacío. Visita la /tienda."
	}
	var b strings.Builder
	b.WriteString("🧺 <b>Inventario Pepegotchi:</b>\n\n")
	for _, e := range items {
		title := e.Item.Title()
		if e.Item.Name == "" {
			title = html.EscapeString(e.Item.Key)
		}
		fmt.Fprintf(&b, "%s — %d\n", strings.TrimSpace(title), e.Count)
	}
	b.WriteString("\nUsa <code>/usar &lt;nombre&gt;</code> para dárselo a tu Pepegotchi.")
	return b.String()
}

// Status renders the pet statistics.
func Status(st *engine.StatusResult) string {
	rec := st.Record
	var b strings.Builder
	b.WriteString("📊 <b>Estado de tu Pepegotchi:</b>\n\n")
	fmt.Fprintf(&b, "💰 Monedas: %d\n", rec.Currency)
	fmt.Fprintf(&b, "⭐ XP: %d\n", rec.Experience)
	fmt.Fprintf(&b, "🏅 Rango: %s\n", st.Rank.Title())
	if st.HasNext {
		fmt.Fprintf(&b, "🎯 Siguiente: %s (faltan %d XP)\n", st.Next.Title(), st.Next.MinExperience-rec.Experience)
	}
	fmt.Fprintf(&b, "⚡ Energía: %d%%\n", rec.Energy)
	fmt.Fprintf(&b, "🍽️ Comidas hoy: %d/%d\n", st.FeedsToday, pet.FeedPolicy.DailyLimit)
	fmt.Fprintf(&b, "🎮 Juegos hoy: %d/%d\n", st.PlaysToday, pet.PlayPolicy.DailyLimit)
	if st.Asleep {
		fmt.Fprintf(&b, "💤 Durmiendo: Sí 😴 (despierta en %s", timeutil.FormatRemaining(st.Remaining))
		if rec.Sleep.WakeAt != nil {
			fmt.Fprintf(&b, ", a las %s", timeutil.FormatClock(*rec.Sleep.WakeAt))
		}
		b.WriteString(")")
	} else {
		b.WriteString("💤 Durmiendo: No 🐸")
	}
	return b.String()
}

// RankUp announces a new rank.
func RankUp(r pet.RankUp) string {
	return fmt.Sprintf("🌟 ¡Tu Pepegotchi ha subido al rango <b>%s</b>! 🎉\n🎁 Has ganado +%d monedas",
		r.To.Title(), r.Bonus)
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ErrorMessage maps an engine error to the text shown to the user. known is
// false for unexpected failures, which callers log at error level.
func ErrorMessage(action pet.Action, err error) (text string, known bool) {
	var asleep *pet.AsleepError
	switch {
	case errors.As(err, &asleep):
		if errors.Is(asleep, shared.ErrAlreadyAsleep) {
			return fmt.Sprintf("😴 Tu Pepegotchi ya está durmiendo... 💤\nDespertará en %s.", timeutil.FormatRemaining(asleep.Remaining)), true
		}
		return fmt.Sprintf("🤫 Shhh... tu Pepegotchi está dormido 💤\n⏰ Despertará en %s.", timeutil.FormatRemaining(asleep.Remaining)), true

	case errors.Is(err, shared.ErrUserNotInitialized):
		return NotStartedText, true

	case errors.Is(err, shared.ErrLimitReached):
		p, ok := pet.PolicyFor(action)
		switch {
		case ok && action == pet.ActionFeed:
			return fmt.Sprintf("🚫 Ya alimentaste a tu Pepegotchi el máximo de %d veces hoy. Espera hasta mañana.", p.DailyLimit), true
		case ok && action == pet.ActionPlay:
			return fmt.Sprintf("🚫 Ya jugaste el máximo de %d veces hoy. Espera hasta mañana.", p.DailyLimit), true
		}
		return "🚫 Ya llegaste al límite de hoy.", true

	case errors.Is(err, shared.ErrInsufficientFunds):
		switch action {
		case pet.ActionFeed:
			return "💸 No tienes suficientes monedas para alimentar a tu Pepegotchi.", true
		case pet.ActionPlay:
			return "💸 No tienes suficientes monedas para jugar.", true
		}
		return "💸 No tienes suficientes monedas.", true

	case errors.Is(err, shared.ErrAlreadyClaimed):
		return "⏰ Ya hiciste tu check-in diario. ¡Vuelve mañana! 🌞", true

	case errors.Is(err, shared.ErrItemNotOwned):
		return "🧺 No tienes ese objeto en tu inventario.", true

	case errors.Is(err, shared.ErrInvalidItem):
		return "❌ Ese objeto no existe. Mira la /tienda.", true

	case errors.Is(err, shared.ErrPersistence):
		return PersistenceFailureText, true

	default:
		return GenericErrorText, false
	}
}
