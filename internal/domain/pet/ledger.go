package pet

import "github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"

// ══════════════════════════════════════════════════════════════════════════════
// DAILY ACTION LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Action names a user action.
type Action string

const (
	ActionFeed    Action = "feed"
	ActionPlay    Action = "play"
	ActionSleep   Action = "sleep"
	ActionCheckin Action = "checkin"
	ActionBuy     Action = "buy"
	ActionUse     Action = "use"
)

// Policy describes a daily limited action: the first FreePerDay uses are
// free, the rest cost Fee until DailyLimit uses have been made.
type Policy struct {
	Action     Action
	FreePerDay int
	DailyLimit int
	Fee        int
	XP         int
	Energy     int
}

// CostFor returns the price of the next use given n uses already made today.
func (p Policy) CostFor(n int) (int, error) {
	switch {
	case n >= p.DailyLimit:
		return 0, shared.ErrLimitReached
	case n < p.FreePerDay:
		return 0, nil
	default:
		return p.Fee, nil
	}
}

// Canonical policies.
var (
	FeedPolicy = Policy{Action: ActionFeed, FreePerDay: 1, DailyLimit: 4, Fee: 100, XP: 10, Energy: 20}
	PlayPolicy = Policy{Action: ActionPlay, FreePerDay: 1, DailyLimit: 4, Fee: 150, XP: 15, Energy: 0}
)

// PolicyFor returns the policy of a limited action.
func PolicyFor(a Action) (Policy, bool) {
	switch a {
	case ActionFeed:
		return FeedPolicy, true
	case ActionPlay:
		return PlayPolicy, true
	default:
		return Policy{}, false
	}
}

// Count returns the uses of action made on today. Stale counters read as zero.
func Count(r *Record, a Action, today string) int {
	if r.Daily.Date != today {
		return 0
	}
	switch a {
	case ActionFeed:
		return r.Daily.FeedCount
	case ActionPlay:
		return r.Daily.PlayCount
	default:
		return 0
	}
}

// Increment records one use of action on today, resetting stale counters first.
func Increment(r *Record, a Action, today string) {
	if r.Daily.Date != today {
		r.Daily = DailyCounters{Date: today}
	}
	switch a {
	case ActionFeed:
		r.Daily.FeedCount++
	case ActionPlay:
		r.Daily.PlayCount++
	}
}

// ResetDaily sets the counters of today to zero.
func ResetDaily(r *Record, today string) {
	r.Daily = DailyCounters{Date: today}
}

// PerformLimited runs a feed/play action on r: checks the ledger, charges
// the fee, applies the rewards and counts the use. The record is left
// untouched on error. It returns the coins charged.
func PerformLimited(r *Record, p Policy, today string) (int, error) {
	cost, err := p.CostFor(Count(r, p.Action, today))
	if err != nil {
		return 0, err
	}
	if err := r.Spend(cost); err != nil {
		return 0, err
	}
	r.GainExperience(p.XP)
	r.GainEnergy(p.Energy)
	Increment(r, p.Action, today)
	return cost, nil
}
