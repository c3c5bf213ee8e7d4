package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct {
	mu       sync.Mutex
	panics   int
	limited  int
	commands []string
}

func (c *counter) RecordPanic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.panics++
}

func (c *counter) RecordRateLimited() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limited++
}

func (c *counter) RecordCommand(command, outcome string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands = append(c.commands, command+":"+outcome)
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY
// ══════════════════════════════════════════════════════════════════════════════

func TestRecovery_RecoversPanic(t *testing.T) {
	c := &counter{}
	var seen *PanicInfo
	cfg := DefaultRecoveryConfig()
	cfg.Metrics = c
	cfg.OnPanic = func(_ context.Context, info *PanicInfo) { seen = info }
	m := NewRecoveryMiddleware(cfg)

	res, err := m.RecoverWithHandler(context.Background(), "42", "alimentar", func() error {
		panic("nil map")
	})
	require.NoError(t, err)
	assert.True(t, res.Recovered)
	assert.Equal(t, DefaultPanicMessage, res.UserMessage)
	require.NotNil(t, seen)
	assert.Equal(t, "42", seen.UserID)
	assert.Equal(t, "alimentar", seen.Command)
	assert.EqualError(t, seen.Error, "nil map")
	assert.NotEmpty(t, seen.StackTrace)
	assert.Equal(t, 1, c.panics)
}

func TestRecovery_PassesErrorsThrough(t *testing.T) {
	m := NewRecoveryMiddleware(DefaultRecoveryConfig())
	boom := errors.New("boom")

	res, err := m.RecoverWithHandler(context.Background(), "1", "jugar", func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, res.Recovered)
}

func TestRecovery_LimitsFullReports(t *testing.T) {
	cfg := DefaultRecoveryConfig()
	cfg.MaxPanicsPerMinute = 1
	calls := 0
	cfg.OnPanic = func(context.Context, *PanicInfo) { calls++ }
	m := NewRecoveryMiddleware(cfg)

	for i := 0; i < 3; i++ {
		res, _ := m.RecoverWithHandler(context.Background(), "1", "x", func() error { panic(i) })
		assert.True(t, res.Recovered)
	}
	assert.Equal(t, 1, calls)
}

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMIT
// ══════════════════════════════════════════════════════════════════════════════

func TestRateLimiter_BurstThenThrottle(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &counter{}
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 60,
		BurstSize:         3,
		Metrics:           c,
		Now:               func() time.Time { return now },
	})

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Check(7).Allowed, "request %d", i)
	}
	res := rl.Check(7)
	assert.False(t, res.Allowed)
	assert.InDelta(t, time.Second, res.RetryAfter, float64(10*time.Millisecond))
	assert.Equal(t, 1, c.limited)

	// Other users have their own bucket.
	assert.True(t, rl.Check(8).Allowed)

	now = now.Add(time.Second)
	assert.True(t, rl.Check(7).Allowed)
}

func TestRateLimiter_Whitelist(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		RequestsPerMinute: 1,
		BurstSize:         1,
		WhitelistedUsers:  map[int64]bool{1: true},
	})
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Check(1).Allowed)
	}
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{
		IdleTTL: time.Minute,
		Now:     func() time.Time { return now },
	})
	rl.Check(1)
	now = now.Add(30 * time.Second)
	rl.Check(2)
	now = now.Add(45 * time.Second)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.Len())
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

func TestMetrics_RecordsOnce(t *testing.T) {
	c := &counter{}
	m := NewMetricsMiddleware(c)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	rc := m.Start("estado")
	now = now.Add(40 * time.Millisecond)
	rc.End("ok")
	rc.End("error")

	rc = m.Start("estado")
	now = now.Add(20 * time.Millisecond)
	rc.End("error")

	assert.Equal(t, []string{"estado:ok", "estado:error"}, c.commands)
	snap := m.Snapshot()["estado"]
	assert.EqualValues(t, 2, snap.Count)
	assert.EqualValues(t, 1, snap.Errors)
	assert.Equal(t, 40*time.Millisecond, snap.MaxDuration)
	assert.Equal(t, 30*time.Millisecond, snap.AvgDuration())
}
