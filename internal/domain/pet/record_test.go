package pet

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

func TestNewRecord_Defaults(t *testing.T) {
	now := timeutil.DateTime(2024, 6, 1, 9, 0, 0)
	rec := NewRecord("123456789", "Pepe", now)

	assert.Equal(t, "123456789", rec.UserID)
	assert.Equal(t, "56789", rec.Code)
	assert.Equal(t, 0, rec.Experience)
	assert.Equal(t, StartingCurrency, rec.Currency)
	assert.Equal(t, MaxEnergy, rec.Energy)
	assert.Equal(t, "bebe", rec.LastEvaluatedRank)
	assert.False(t, rec.Sleep.IsSleeping)
	assert.Empty(t, rec.Inventory)
}

func TestRecord_CloneIsDeep(t *testing.T) {
	now := time.Now()
	rec := NewRecord("1", "", now)
	rec.Inventory["mosca"] = 1
	_ = StartSleep(rec, now, "e")

	c := rec.Clone()
	c.Inventory["mosca"] = 5
	*c.Sleep.WakeAt = now

	assert.Equal(t, 1, rec.Inventory["mosca"])
	assert.Equal(t, now.Add(SleepDuration), *rec.Sleep.WakeAt)
}

func TestRecord_Normalize(t *testing.T) {
	rec := &Record{
		Experience: 1500,
		Currency:   -3,
		Energy:     140,
		Inventory:  map[string]int{"mosca": 0, "araña": 2},
		Sleep:      SleepState{IsSleeping: true},
	}
	rec.Normalize()

	assert.Equal(t, 0, rec.Currency)
	assert.Equal(t, MaxEnergy, rec.Energy)
	assert.Equal(t, map[string]int{"araña": 2}, rec.Inventory)
	assert.False(t, rec.Sleep.IsSleeping)
	assert.Equal(t, "joven", rec.LastEvaluatedRank)
}

func TestRecord_Spend(t *testing.T) {
	rec := &Record{Currency: 100}
	assert.NoError(t, rec.Spend(100))
	assert.Equal(t, 0, rec.Currency)
	assert.ErrorIs(t, rec.Spend(1), shared.ErrInsufficientFunds)
	assert.Equal(t, 0, rec.Currency)
	assert.Error(t, rec.Spend(-1))
}

func TestCheckin(t *testing.T) {
	rec := &Record{Inventory: map[string]int{}}

	assert.NoError(t, Checkin(rec, "2024-06-01"))
	assert.Equal(t, CheckinXP, rec.Experience)
	assert.Equal(t, CheckinCurrency, rec.Currency)

	assert.ErrorIs(t, Checkin(rec, "2024-06-01"), shared.ErrAlreadyClaimed)
	assert.Equal(t, CheckinCurrency, rec.Currency)

	assert.NoError(t, Checkin(rec, "2024-06-02"))
	assert.Equal(t, 2*CheckinCurrency, rec.Currency)
}
