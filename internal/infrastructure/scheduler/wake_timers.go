package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

// WakeTimers holds the one-shot timers that wake sleeping pets on time.
//
// Timers are keyed by user and sleep epoch. Scheduling the same key again
// replaces the pending timer. Timers of earlier epochs are left to fire:
// the wake path re-checks the record and does nothing if the deadline it
// finds has not passed.
type WakeTimers struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	clock   timeutil.Clock
	logger  *slog.Logger
	gauge   func(int)
	stopped bool
}

// WakeTimersConfig configures WakeTimers.
type WakeTimersConfig struct {
	Clock  timeutil.Clock
	Logger *slog.Logger

	// OnChange receives the number of pending timers after every change.
	OnChange func(pending int)
}

// NewWakeTimers creates an empty timer set.
func NewWakeTimers(cfg WakeTimersConfig) *WakeTimers {
	if cfg.Clock == nil {
		cfg.Clock = timeutil.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &WakeTimers{
		timers: make(map[string]*time.Timer),
		clock:  cfg.Clock,
		logger: cfg.Logger.With("component", "wake_timers"),
		gauge:  cfg.OnChange,
	}
}

func timerKey(userID, epoch string) string {
	return userID + ":" + epoch
}

// Schedule runs fn at the given time, or immediately if it has passed.
func (w *WakeTimers) Schedule(userID, epoch string, at time.Time, fn func()) {
	key := timerKey(userID, epoch)
	delay := at.Sub(w.clock.Now())
	if delay < 0 {
		delay = 0
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		w.logger.Debug("timer set stopped, not scheduling", "user_id", userID, "epoch", epoch)
		return
	}
	if old, ok := w.timers[key]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		w.mu.Lock()
		if w.timers[key] == t {
			delete(w.timers, key)
		}
		w.reportLocked()
		w.mu.Unlock()

		fn()
	})
	w.timers[key] = t
	w.reportLocked()

	w.logger.Debug("wake timer armed", "user_id", userID, "epoch", epoch, "delay", delay.String())
}

// Len returns the number of pending timers.
func (w *WakeTimers) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.timers)
}

// Stop cancels every pending timer. Later Schedule calls are ignored.
// Pending wakes are picked up by the sweep job or the next command after
// restart.
func (w *WakeTimers) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for key, t := range w.timers {
		t.Stop()
		delete(w.timers, key)
	}
	w.stopped = true
	w.reportLocked()
}

func (w *WakeTimers) reportLocked() {
	if w.gauge != nil {
		w.gauge(len(w.timers))
	}
}
