package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepegotchi/pepegotchi-bot/config"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/lock"
	"github.com/pepegotchi/pepegotchi-bot/pkg/timeutil"
)

func testConfig(t *testing.T, driver string) *config.Config {
	dir := t.TempDir()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:     driver,
			Path:       filepath.Join(dir, "pepegotchi_db.json"),
			SQLitePath: filepath.Join(dir, "pepegotchi.db"),
			LockDriver: config.LockLocal,
		},
	}
}

func roundTrip(t *testing.T, b *Backend) {
	t.Helper()
	ctx := context.Background()

	rec := pet.NewRecord("42", "Pepe", timeutil.DateTime(2024, 5, 1, 10, 0, 0))
	require.NoError(t, b.Repo.Save(ctx, rec))

	got, err := b.Repo.Get(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Pepe", got.Name)

	n, err := b.CountPets(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpen_FileDriver(t *testing.T) {
	b, err := Open(context.Background(), testConfig(t, config.StoreFile), nil)
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &lock.KeyedMutex{}, b.Locker)
	assert.Empty(t, b.Checks)
	roundTrip(t, b)
}

func TestOpen_SQLiteDriver(t *testing.T) {
	b, err := Open(context.Background(), testConfig(t, config.StoreSQLite), nil)
	require.NoError(t, err)
	defer b.Close()

	require.Contains(t, b.Checks, "sqlite")
	assert.NoError(t, b.Checks["sqlite"].Ping(context.Background()))
	roundTrip(t, b)

	assert.NoError(t, b.Close())
}

func TestOpen_UnknownDriver(t *testing.T) {
	b, err := Open(context.Background(), testConfig(t, "mongo"), nil)
	require.Error(t, err)
	assert.Nil(t, b)
}
