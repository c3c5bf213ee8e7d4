package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pepegotchi/pepegotchi-bot/config"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence/postgres"
)

const (
	migrateUp     = "up"
	migrateDown   = "down"
	migrateStatus = "status"
)

type migrationRunner interface {
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
	Status(ctx context.Context) ([]postgres.Migration, error)
}

// migrate connects to the configured postgres store and runs action.
func migrate(ctx context.Context, cfg *config.Config, action string, out io.Writer) error {
	if cfg.Store.Driver != config.StorePostgres {
		return fmt.Errorf("-migrate needs STORE_DRIVER=postgres, got %q", cfg.Store.Driver)
	}

	pc := postgres.DefaultConfig(cfg.Postgres.URL)
	conn, err := postgres.NewConnection(ctx, pc)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer conn.Close()

	return runMigration(ctx, postgres.NewMigrator(conn), action, out)
}

func runMigration(ctx context.Context, m migrationRunner, action string, out io.Writer) error {
	switch action {
	case migrateUp:
		if err := m.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil
	case migrateDown:
		if err := m.Rollback(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "last migration rolled back")
		return nil
	case migrateStatus:
		migrations, err := m.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tNAME\tAPPLIED AT")
		for _, mig := range migrations {
			applied := "pending"
			if mig.IsApplied {
				applied = mig.AppliedAt.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", mig.Version, mig.Name, applied)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown migrate action %q, want %s, %s or %s", action, migrateUp, migrateDown, migrateStatus)
	}
}
