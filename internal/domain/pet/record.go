package pet

import (
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSTANTS
// ══════════════════════════════════════════════════════════════════════════════

const (
	// StartingCurrency is granted to every new pet.
	StartingCurrency = 50

	// MaxEnergy is the upper bound of the energy stat.
	MaxEnergy = 100

	// StartingEnergy is the energy of a new pet.
	StartingEnergy = MaxEnergy
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD
// ══════════════════════════════════════════════════════════════════════════════

// DailyCounters holds the per-day action counts. A Date other than today
// means every count is zero.
type DailyCounters struct {
	Date      string `json:"date"`
	FeedCount int    `json:"feed_count"`
	PlayCount int    `json:"play_count"`
}

// SleepState is the sleep state machine: Awake, or Asleep until WakeAt.
// Epoch identifies one sleep period so that wake timers of older periods
// can be recognised as stale.
type SleepState struct {
	IsSleeping bool       `json:"is_sleeping"`
	WakeAt     *time.Time `json:"wake_at,omitempty"`
	Epoch      string     `json:"epoch,omitempty"`
}

// Record is the persisted state of one user's pet.
type Record struct {
	UserID            string         `json:"-"`
	Name              string         `json:"name,omitempty"`
	Code              string         `json:"code,omitempty"`
	Experience        int            `json:"experience"`
	Currency          int            `json:"currency"`
	Energy            int            `json:"energy"`
	LastEvaluatedRank string         `json:"last_evaluated_rank"`
	Inventory         map[string]int `json:"inventory"`
	Daily             DailyCounters  `json:"daily"`
	Sleep             SleepState     `json:"sleep"`
	LastCheckin       string         `json:"last_checkin,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewRecord creates the record of a freshly adopted pet.
func NewRecord(userID shared.UserID, name string, now time.Time) *Record {
	return &Record{
		UserID:            userID.String(),
		Name:              name,
		Code:              userID.ShortCode(),
		Experience:        0,
		Currency:          StartingCurrency,
		Energy:            StartingEnergy,
		LastEvaluatedRank: RankOf(0).Key,
		Inventory:         map[string]int{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Inventory = make(map[string]int, len(r.Inventory))
	for k, v := range r.Inventory {
		c.Inventory[k] = v
	}
	if r.Sleep.WakeAt != nil {
		w := *r.Sleep.WakeAt
		c.Sleep.WakeAt = &w
	}
	return &c
}

// Rank returns the current rank derived from experience.
func (r *Record) Rank() Rank {
	return RankOf(r.Experience)
}

// Normalize repairs records written by older versions or edited by hand.
// It never grants anything: it only restores the record invariants.
func (r *Record) Normalize() {
	if r.Inventory == nil {
		r.Inventory = map[string]int{}
	}
	for k, v := range r.Inventory {
		if v <= 0 {
			delete(r.Inventory, k)
		}
	}
	if r.Experience < 0 {
		r.Experience = 0
	}
	if r.Currency < 0 {
		r.Currency = 0
	}
	r.Energy = clampEnergy(r.Energy)
	if r.Sleep.IsSleeping && r.Sleep.WakeAt == nil {
		r.Sleep = SleepState{}
	}
	if !r.Sleep.IsSleeping {
		r.Sleep.WakeAt = nil
	}
	if r.LastEvaluatedRank == "" {
		r.LastEvaluatedRank = RankOf(r.Experience).Key
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STAT MUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Spend deducts amount coins or fails with ErrInsufficientFunds without
// touching the record.
func (r *Record) Spend(amount int) error {
	if amount < 0 {
		return shared.NewDomainError("pet", "Spend", shared.ErrNegativeValue, "negative amount")
	}
	if r.Currency < amount {
		return shared.ErrInsufficientFunds
	}
	r.Currency -= amount
	return nil
}

// Earn adds coins.
func (r *Record) Earn(amount int) {
	if amount > 0 {
		r.Currency += amount
	}
}

// GainExperience adds experience. Negative amounts are ignored since
// experience never decreases.
func (r *Record) GainExperience(amount int) {
	if amount > 0 {
		r.Experience += amount
	}
}

// GainEnergy adds energy, capped at MaxEnergy.
func (r *Record) GainEnergy(amount int) {
	r.Energy = clampEnergy(r.Energy + amount)
}

// RestoreEnergy sets energy to the maximum.
func (r *Record) RestoreEnergy() {
	r.Energy = MaxEnergy
}

func clampEnergy(v int) int {
	switch {
	case v < 0:
		return 0
	case v > MaxEnergy:
		return MaxEnergy
	default:
		return v
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CHECK-IN
// ══════════════════════════════════════════════════════════════════════════════

const (
	// CheckinXP is granted by the daily check-in.
	CheckinXP = 50
	// CheckinCurrency is granted by the daily check-in.
	CheckinCurrency = 200
)

// Checkin claims the daily reward for today. It is allowed while asleep.
func Checkin(r *Record, today string) error {
	if r.LastCheckin == today {
		return shared.ErrAlreadyClaimed
	}
	r.LastCheckin = today
	r.GainExperience(CheckinXP)
	r.Earn(CheckinCurrency)
	return nil
}
