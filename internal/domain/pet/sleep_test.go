package pet

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

func TestStartSleep(t *testing.T) {
	now := timeutil.DateTime(2024, 6, 1, 22, 0, 0)
	rec := NewRecord("42", "Pepe", now)

	require.NoError(t, StartSleep(rec, now, "epoch-1"))
	assert.True(t, IsAsleep(rec))
	assert.Equal(t, now.Add(SleepDuration), *rec.Sleep.WakeAt)
	assert.Equal(t, "epoch-1", rec.Sleep.Epoch)
	assert.Equal(t, SleepXP, rec.Experience)
}

func TestStartSleep_WhileAsleepIsNoop(t *testing.T) {
	now := timeutil.DateTime(2024, 6, 1, 22, 0, 0)
	rec := NewRecord("42", "Pepe", now)
	require.NoError(t, StartSleep(rec, now, "epoch-1"))
	snapshot := rec.Clone()

	later := now.Add(2*time.Hour + 30*time.Minute)
	err := StartSleep(rec, later, "epoch-2")

	var asleep *AsleepError
	require.True(t, errors.As(err, &asleep))
	assert.ErrorIs(t, err, shared.ErrAlreadyAsleep)
	assert.Equal(t, 3*time.Hour+30*time.Minute, asleep.Remaining)
	assert.Equal(t, snapshot, rec)
}

func TestWakeIfDue(t *testing.T) {
	now := timeutil.DateTime(2024, 6, 1, 22, 0, 0)
	rec := NewRecord("42", "Pepe", now)
	require.NoError(t, StartSleep(rec, now, "epoch-1"))

	assert.False(t, WakeIfDue(rec, now.Add(5*time.Hour)))
	assert.True(t, IsAsleep(rec))

	assert.True(t, WakeIfDue(rec, now.Add(SleepDuration)))
	assert.False(t, IsAsleep(rec))
	assert.Nil(t, rec.Sleep.WakeAt)

	// Idempotent.
	assert.False(t, WakeIfDue(rec, now.Add(7*time.Hour)))
}

func TestCheckAwake(t *testing.T) {
	now := timeutil.DateTime(2024, 6, 1, 22, 0, 0)
	rec := NewRecord("42", "Pepe", now)
	assert.NoError(t, CheckAwake(rec, now))

	require.NoError(t, StartSleep(rec, now, "e"))
	err := CheckAwake(rec, now.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrStillAsleep)
	assert.NotErrorIs(t, err, shared.ErrAlreadyAsleep)

	var asleep *AsleepError
	require.ErrorAs(t, err, &asleep)
	assert.Equal(t, 5*time.Hour, asleep.Remaining)

	assert.NoError(t, CheckAwake(rec, now.Add(SleepDuration)))
}
