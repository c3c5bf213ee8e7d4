package pet

import (
	"fmt"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SLEEP
// ══════════════════════════════════════════════════════════════════════════════

const (
	// SleepDuration is the length of one sleep period.
	SleepDuration = 6 * time.Hour
	// SleepXP is granted when the pet goes to sleep.
	SleepXP = 50
)

// AsleepError is returned when an action conflicts with the sleep state.
// Kind is either shared.ErrStillAsleep or shared.ErrAlreadyAsleep.
type AsleepError struct {
	Kind      *shared.DomainError
	WakeAt    time.Time
	Remaining time.Duration
}

// Error implements the error interface.
func (e *AsleepError) Error() string {
	return fmt.Sprintf("%s (wakes at %s, %s left)", e.Kind.Error(), e.WakeAt.Format(time.RFC3339), e.Remaining.Round(time.Second))
}

// Unwrap lets errors.Is match the sleep kind.
func (e *AsleepError) Unwrap() error {
	return e.Kind
}

// IsAsleep reports whether the record is in the Asleep state.
func IsAsleep(r *Record) bool {
	return r.Sleep.IsSleeping && r.Sleep.WakeAt != nil
}

// Remaining returns the time left until wake, zero when awake or due.
func Remaining(r *Record, now time.Time) time.Duration {
	if !IsAsleep(r) {
		return 0
	}
	d := r.Sleep.WakeAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// WakeIfDue applies the lazy wake transition. It returns true when the
// record moved from Asleep to Awake.
func WakeIfDue(r *Record, now time.Time) bool {
	if !IsAsleep(r) {
		return false
	}
	if now.Before(*r.Sleep.WakeAt) {
		return false
	}
	r.Sleep.IsSleeping = false
	r.Sleep.WakeAt = nil
	return true
}

// CheckAwake fails with ErrStillAsleep while the pet sleeps.
func CheckAwake(r *Record, now time.Time) error {
	if !IsAsleep(r) || !now.Before(*r.Sleep.WakeAt) {
		return nil
	}
	return &AsleepError{
		Kind:      shared.ErrStillAsleep,
		WakeAt:    *r.Sleep.WakeAt,
		Remaining: Remaining(r, now),
	}
}

// StartSleep puts the pet to sleep for SleepDuration and grants SleepXP.
// Sleeping again while asleep is rejected with ErrAlreadyAsleep and does
// not change the record or extend the deadline.
func StartSleep(r *Record, now time.Time, epoch string) error {
	if IsAsleep(r) && now.Before(*r.Sleep.WakeAt) {
		return &AsleepError{
			Kind:      shared.ErrAlreadyAsleep,
			WakeAt:    *r.Sleep.WakeAt,
			Remaining: Remaining(r, now),
		}
	}
	wakeAt := now.Add(SleepDuration)
	r.Sleep = SleepState{IsSleeping: true, WakeAt: &wakeAt, Epoch: epoch}
	r.GainExperience(SleepXP)
	return nil
}
