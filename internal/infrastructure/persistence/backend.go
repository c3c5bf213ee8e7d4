// Package persistence opens the configured pet store and user locker.
//
// Drivers:
//   - file:     one JSON document, single process only
//   - sqlite:   embedded database file
//   - postgres: records as JSONB rows
//   - redis:    records in one hash
//
// The locker is in-process unless LOCK_DRIVER=redis, which is required when
// more than one process mutates the same store.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pepegotchi/pepegotchi-bot/config"
	"github.com/pepegotchi/pepegotchi-bot/internal/application/engine"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/lock"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence/jsonfile"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence/postgres"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence/redis"
	"github.com/pepegotchi/pepegotchi-bot/internal/infrastructure/persistence/sqlite"
)

// Pinger is a dependency that can be health checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping calls f.
func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Backend is the opened storage stack.
type Backend struct {
	Repo   pet.Repository
	Locker engine.Locker

	// Checks are the pingable dependencies, by name.
	Checks map[string]Pinger

	closers []func() error
}

// Open connects the store and locker selected by cfg. On error everything
// opened so far is closed.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (b *Backend, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	b = &Backend{Checks: make(map[string]Pinger)}
	defer func() {
		if err != nil {
			_ = b.Close()
			b = nil
		}
	}()

	var redisClient *redis.Client
	if cfg.UsesRedis() {
		rc := redis.DefaultConfig()
		rc.URL = cfg.Redis.URL
		rc.Host = cfg.Redis.Host
		rc.Port = cfg.Redis.Port
		rc.Password = cfg.Redis.Password
		rc.DB = cfg.Redis.DB
		rc.PoolSize = cfg.Redis.PoolSize
		rc.DialTimeout = cfg.Redis.DialTimeout
		rc.ReadTimeout = cfg.Redis.ReadTimeout
		rc.WriteTimeout = cfg.Redis.WriteTimeout
		rc.KeyPrefix = cfg.Redis.KeyPrefix

		redisClient, err = redis.NewClient(ctx, rc)
		if err != nil {
			return b, fmt.Errorf("connect redis: %w", err)
		}
		b.closers = append(b.closers, redisClient.Close)
		b.Checks["redis"] = redisClient
		logger.Info("redis connected", "addr", rc.Addr())
	}

	switch cfg.Store.Driver {
	case config.StoreFile:
		fc := jsonfile.DefaultConfig()
		fc.Path = cfg.Store.Path
		fc.Logger = logger
		store, err := jsonfile.Open(fc)
		if err != nil {
			return b, fmt.Errorf("open file store: %w", err)
		}
		b.Repo = store
		logger.Info("file store opened", "path", store.Path(), "users", store.Len())

	case config.StoreSQLite:
		store, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return b, fmt.Errorf("open sqlite store: %w", err)
		}
		b.closers = append(b.closers, store.Close)
		b.Repo = store
		b.Checks["sqlite"] = store
		logger.Info("sqlite store opened", "path", cfg.Store.SQLitePath)

	case config.StorePostgres:
		pc := postgres.DefaultConfig(cfg.Postgres.URL)
		pc.MaxConns = cfg.Postgres.MaxConns
		pc.MinConns = cfg.Postgres.MinConns
		pc.MaxConnLifetime = cfg.Postgres.MaxConnLifetime
		pc.MaxConnIdleTime = cfg.Postgres.MaxConnIdleTime
		pc.Logger = logger

		conn, err := postgres.NewConnection(ctx, pc)
		if err != nil {
			return b, fmt.Errorf("connect postgres: %w", err)
		}
		b.closers = append(b.closers, func() error {
			conn.Close()
			return nil
		})
		if cfg.Postgres.AutoMigrate {
			if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
				return b, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		b.Repo = postgres.NewPetRepository(conn)
		b.Checks["postgres"] = PingerFunc(conn.Check)
		logger.Info("postgres store opened")

	case config.StoreRedis:
		b.Repo = redis.NewPetRepository(redisClient)
		logger.Info("redis store opened")

	default:
		return b, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	switch cfg.Store.LockDriver {
	case config.LockRedis:
		lc := redis.DefaultLockerConfig()
		if cfg.Redis.LockTTL > 0 {
			lc.TTL = cfg.Redis.LockTTL
		}
		b.Locker = redis.NewLocker(redisClient, lc)
	default:
		b.Locker = lock.NewKeyedMutex()
	}

	return b, nil
}

// Close releases every opened connection.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// CountPets returns the number of stored records.
func (b *Backend) CountPets(ctx context.Context) (int, error) {
	ids, err := b.Repo.IDs(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
