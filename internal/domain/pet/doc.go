// Package pet contains the domain model of a Pepegotchi: the per-user record
// and the pure rules that mutate it.
//
// The package defines:
//
//   - Record: the persisted per-user state (experience, coins, energy,
//     inventory, daily counters, sleep state)
//   - Rank table and the rank-up check with its one-time bonus
//   - Policy table for daily limited actions (feed, play)
//   - Sleep state machine (Awake / Asleep(wakeAt)) with lazy wake
//   - Shop catalog and the deferred consumption rules (buy, then use)
//   - Repository: the storage port implemented in infrastructure/persistence
//
// # Rules
//
// Every function here works on an in-memory *Record and never touches
// storage, clocks or locks. Callers pass "now" explicitly and are expected
// to mutate a clone, so that a failing rule leaves the original untouched:
//
//	rec := stored.Clone()
//	pet.WakeIfDue(rec, now)
//	if err := pet.CheckAwake(rec, now); err != nil {
//	    return err
//	}
//	cost, err := pet.FeedPolicy.CostFor(pet.Count(rec, pet.ActionFeed, today))
//
// Experience never decreases and coins never go negative: every spend is
// checked with Spend before anything else is changed.
package pet
