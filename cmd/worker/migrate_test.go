package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pepegotchi/pepegotchi-bot/config"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence/postgres"
)

type fakeMigrator struct {
	calls  []string
	status []postgres.Migration
	err    error
}

func (f *fakeMigrator) Migrate(context.Context) error {
	f.calls = append(f.calls, "migrate")
	return f.err
}

func (f *fakeMigrator) Rollback(context.Context) error {
	f.calls = append(f.calls, "rollback")
	return f.err
}

func (f *fakeMigrator) Status(context.Context) ([]postgres.Migration, error) {
	f.calls = append(f.calls, "status")
	return f.status, f.err
}

func TestRunMigration_UpAndDown(t *testing.T) {
	m := &fakeMigrator{}
	var out bytes.Buffer

	require.NoError(t, runMigration(context.Background(), m, migrateUp, &out))
	require.NoError(t, runMigration(context.Background(), m, migrateDown, &out))

	assert.Equal(t, []string{"migrate", "rollback"}, m.calls)
	assert.Contains(t, out.String(), "migrations applied")
	assert.Contains(t, out.String(), "last migration rolled back")
}

func TestRunMigration_Status(t *testing.T) {
	m := &fakeMigrator{status: []postgres.Migration{
		{Version: 1, Name: "create_pets", IsApplied: true, AppliedAt: time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)},
		{Version: 2, Name: "pets_rank_index"},
	}}
	var out bytes.Buffer

	require.NoError(t, runMigration(context.Background(), m, migrateStatus, &out))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[1]), "create_pets")
	assert.Contains(t, string(lines[1]), "2024-06-01T06:00:00Z")
	assert.Contains(t, string(lines[2]), "pending")
}

func TestRunMigration_Errors(t *testing.T) {
	boom := errors.New("boom")
	m := &fakeMigrator{err: boom}

	assert.ErrorIs(t, runMigration(context.Background(), m, migrateDown, &bytes.Buffer{}), boom)

	err := runMigration(context.Background(), m, "sideways", &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown migrate action")
}

func TestMigrate_RequiresPostgres(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: config.StoreFile}}

	err := migrate(context.Background(), cfg, migrateStatus, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER=postgres")
}
