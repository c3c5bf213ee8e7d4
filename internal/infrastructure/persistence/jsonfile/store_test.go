package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = path
	s, err := Open(cfg)
	require.NoError(t, err)
	return s
}

func sampleRecord(now time.Time) *pet.Record {
	rec := pet.NewRecord("777000111", "Pepe", now)
	rec.Experience = 1234
	rec.Currency = 420
	rec.Energy = 60
	rec.LastEvaluatedRank = "joven"
	rec.Inventory["araña"] = 2
	rec.Daily = pet.DailyCounters{Date: "2024-06-01", FeedCount: 2, PlayCount: 1}
	rec.LastCheckin = "2024-06-01"
	_ = pet.StartSleep(rec, now, "epoch-1")
	return rec
}

func TestStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	now := timeutil.DateTime(2024, 6, 1, 21, 15, 0)
	ctx := context.Background()

	s := openStore(t, path)
	rec := sampleRecord(now)
	require.NoError(t, s.Save(ctx, rec))

	reopened := openStore(t, path)
	got, err := reopened.Get(ctx, rec.UserID)
	require.NoError(t, err)

	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.Experience, got.Experience)
	assert.Equal(t, rec.Currency, got.Currency)
	assert.Equal(t, rec.Energy, got.Energy)
	assert.Equal(t, rec.Inventory, got.Inventory)
	assert.Equal(t, rec.Daily, got.Daily)
	assert.Equal(t, rec.LastCheckin, got.LastCheckin)
	assert.Equal(t, rec.Sleep.IsSleeping, got.Sleep.IsSleeping)
	assert.True(t, rec.Sleep.WakeAt.Equal(*got.Sleep.WakeAt))
	assert.Equal(t, rec.Sleep.Epoch, got.Sleep.Epoch)
}

func TestStore_DocumentLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s := openStore(t, path)
	require.NoError(t, s.Save(context.Background(), sampleRecord(time.Now())))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw map[string]map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	user, ok := raw["users"]["777000111"]
	require.True(t, ok)
	assert.EqualValues(t, 1234+pet.SleepXP, user["experience"])
	assert.EqualValues(t, 420, user["currency"])
}

func TestStore_MissingAndCorruptFile(t *testing.T) {
	dir := t.TempDir()

	s := openStore(t, filepath.Join(dir, "missing.json"))
	assert.Equal(t, 0, s.Len())

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	s = openStore(t, corrupt)
	assert.Equal(t, 0, s.Len())

	_, err := s.Get(context.Background(), "1")
	assert.ErrorIs(t, err, shared.ErrUserNotInitialized)
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "db.json"))
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, pet.NewRecord("1", "", time.Now())))

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	got.Currency = 99999

	again, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, pet.StartingCurrency, again.Currency)
}

func TestStore_FallbackToDirectWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	s := openStore(t, path)
	s.replaceFile = func(_, _ string) error { return errors.New("rename not permitted") }

	require.NoError(t, s.Save(context.Background(), pet.NewRecord("1", "", time.Now())))

	reopened := openStore(t, path)
	assert.Equal(t, 1, reopened.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestStore_FailedSaveRollsBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	require.NoError(t, os.Mkdir(dir, 0o755))
	s := openStore(t, filepath.Join(dir, "db.json"))
	ctx := context.Background()

	require.NoError(t, os.RemoveAll(dir))

	err := s.Save(ctx, pet.NewRecord("1", "", time.Now()))
	assert.ErrorIs(t, err, shared.ErrPersistence)

	_, err = s.Get(ctx, "1")
	assert.ErrorIs(t, err, shared.ErrUserNotInitialized)
}

func TestStore_IDs(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), "db.json"))
	ctx := context.Background()
	for _, id := range []string{"30", "10", "20"} {
		require.NoError(t, s.Save(ctx, pet.NewRecord(shared.UserID(id), "", time.Now())))
	}

	ids, err := s.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20", "30"}, ids)
}
