// Package sqlite provides a SQLite-backed pet.Repository for single-node
// deployments that want a real database file instead of a JSON document.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

const schema = `
CREATE TABLE IF NOT EXISTS pets (
    user_id    TEXT PRIMARY KEY,
    record     TEXT NOT NULL,
    experience INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pets_experience ON pets (experience DESC);
`

// Store persists pet records in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open opens (creating if needed) the SQLite database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Get returns the record for userID.
func (s *Store) Get(ctx context.Context, userID string) (*pet.Record, error) {
	var raw string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT record FROM pets WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrUserNotInitialized
	}
	if err != nil {
		return nil, shared.WrapError("store", "Get", shared.ErrPersistence, "query pet", err)
	}

	var rec pet.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, shared.WrapError("store", "Get", shared.ErrPersistence, "decode pet", err)
	}
	rec.UserID = userID
	rec.Normalize()
	return &rec, nil
}

// Save upserts the record in a single statement.
func (s *Store) Save(ctx context.Context, rec *pet.Record) error {
	if rec == nil || rec.UserID == "" {
		return shared.NewDomainError("store", "Save", shared.ErrInvalidInput, "record without user id")
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return shared.WrapError("store", "Save", shared.ErrPersistence, "encode pet", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
		INSERT INTO pets (user_id, record, experience, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
		    record = excluded.record,
		    experience = excluded.experience,
		    updated_at = excluded.updated_at`,
		rec.UserID, string(raw), rec.Experience, toMillis(time.Now()),
	)
	if err != nil {
		return shared.WrapError("store", "Save", shared.ErrPersistence, "upsert pet", err)
	}
	return nil
}

// IDs lists every stored user id.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT user_id FROM pets ORDER BY user_id`)
	if err != nil {
		return nil, shared.WrapError("store", "IDs", shared.ErrPersistence, "list pets", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, shared.WrapError("store", "IDs", shared.ErrPersistence, "scan pet id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, shared.WrapError("store", "IDs", shared.ErrPersistence, "iterate pets", err)
	}
	return ids, nil
}
