// Package timeutil provides timezone utilities for the Tegucigalpa timezone (UTC-6).
// Every calendar decision of the bot (daily counters, check-in, midnight reset)
// is made in this zone, whatever the host timezone is.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// TegucigalpaTZ is the America/Tegucigalpa timezone (UTC-6, no DST).
// Honduras has not observed DST since 2006, so a fixed zone is exact and
// does not depend on the tzdata installed on the host.
var TegucigalpaTZ = time.FixedZone("America/Tegucigalpa", -6*60*60)

// FormatDate is the day key layout (YYYY-MM-DD).
const FormatDate = "2006-01-02"

// ══════════════════════════════════════════════════════════════════════════════
// CLOCK
// ══════════════════════════════════════════════════════════════════════════════

// Clock abstracts the current time so that day boundaries and sleep
// deadlines can be driven from tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock and converts it to Tegucigalpa time.
type SystemClock struct{}

// Now returns the current time in Tegucigalpa timezone.
func (SystemClock) Now() time.Time {
	return time.Now().In(TegucigalpaTZ)
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManualClock creates a ManualClock set to t.
func NewManualClock(t time.Time) *ManualClock {
	return &ManualClock{now: t.In(TegucigalpaTZ)}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.In(TegucigalpaTZ)
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// ══════════════════════════════════════════════════════════════════════════════
// CALENDAR
// ══════════════════════════════════════════════════════════════════════════════

// Now returns the current time in Tegucigalpa timezone.
func Now() time.Time {
	return SystemClock{}.Now()
}

// ToLocal converts a time to Tegucigalpa timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(TegucigalpaTZ)
}

// Date creates a time in Tegucigalpa timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, TegucigalpaTZ)
}

// DateTime creates a time in Tegucigalpa timezone with the given date and time.
func DateTime(year, month, day, hour, min, sec int) time.Time {
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, TegucigalpaTZ)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	local := ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, TegucigalpaTZ)
}

// NextMidnight returns the first local midnight strictly after t.
func NextMidnight(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// DayString returns the local calendar day of t as YYYY-MM-DD.
func DayString(t time.Time) string {
	return ToLocal(t).Format(FormatDate)
}

// ParseDay parses a YYYY-MM-DD day string in Tegucigalpa timezone.
func ParseDay(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, value, TegucigalpaTZ)
}

// ══════════════════════════════════════════════════════════════════════════════
// FORMATTING
// ══════════════════════════════════════════════════════════════════════════════

// FormatRemaining renders a non-negative duration as "Xh Ym".
// Seconds are rounded up so that "0h 0m" is only shown when nothing is left.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0h 0m"
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%dh %dm", mins/60, mins%60)
}

// FormatClock formats t as HH:MM in Tegucigalpa time.
func FormatClock(t time.Time) string {
	return ToLocal(t).Format("15:04")
}
