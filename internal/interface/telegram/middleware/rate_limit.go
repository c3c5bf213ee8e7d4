package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Per-user token buckets. Gentle with users who tap a button twice, firm
// with scripts that hammer the bot.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitRecorder counts rejected requests.
type RateLimitRecorder interface {
	RecordRateLimited()
}

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per user.
	RequestsPerMinute int

	// BurstSize is how many requests a user may send at once.
	BurstSize int

	// IdleTTL is how long an unused bucket is kept.
	IdleTTL time.Duration

	// WhitelistedUsers are exempt from rate limiting.
	WhitelistedUsers map[int64]bool

	Metrics RateLimitRecorder

	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         5,
		IdleTTL:           10 * time.Minute,
	}
}

// RateLimitResult represents the result of a rate limit check.
type RateLimitResult struct {
	Allowed bool

	// RetryAfter is how long the user should wait before retrying.
	RetryAfter time.Duration
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements per-user rate limiting.
type RateLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	limiters map[int64]*userLimiter
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.BurstSize <= 0 {
		config.BurstSize = def.BurstSize
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &RateLimiter{
		config:   config,
		limiters: make(map[int64]*userLimiter),
	}
}

// Check consumes one token for the user.
func (rl *RateLimiter) Check(telegramID int64) *RateLimitResult {
	if rl.config.WhitelistedUsers[telegramID] {
		return &RateLimitResult{Allowed: true}
	}

	now := rl.config.Now()
	lim := rl.getLimiter(telegramID, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		rl.recordLimited()
		return &RateLimitResult{Allowed: false, RetryAfter: time.Minute}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		rl.recordLimited()
		return &RateLimitResult{Allowed: false, RetryAfter: delay}
	}
	return &RateLimitResult{Allowed: true}
}

func (rl *RateLimiter) recordLimited() {
	if rl.config.Metrics != nil {
		rl.config.Metrics.RecordRateLimited()
	}
}

func (rl *RateLimiter) getLimiter(telegramID int64, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.limiters[telegramID]
	if !ok {
		every := time.Minute / time.Duration(rl.config.RequestsPerMinute)
		ul = &userLimiter{limiter: rate.NewLimiter(rate.Every(every), rl.config.BurstSize)}
		rl.limiters[telegramID] = ul
	}
	ul.lastSeen = now
	return ul.limiter
}

// Cleanup drops buckets idle for longer than IdleTTL and returns how many
// were removed.
func (rl *RateLimiter) Cleanup() int {
	threshold := rl.config.Now().Add(-rl.config.IdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, ul := range rl.limiters {
		if ul.lastSeen.Before(threshold) {
			delete(rl.limiters, id)
			removed++
		}
	}
	return removed
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}
