// Package jsonfile implements pet.Repository on top of a single JSON
// document ({"users": {"<id>": record}}), kept in memory and rewritten in
// full on every save.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// DefaultPath is the document used when no path is configured.
const DefaultPath = "pepegotchi_db.json"

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds file store settings.
type Config struct {
	// Path of the JSON document.
	Path string

	// FileMode used when the document is created.
	FileMode os.FileMode

	// Logger for load warnings and write fallbacks.
	Logger *slog.Logger
}

// DefaultConfig returns the default file store configuration.
func DefaultConfig() Config {
	return Config{
		Path:     DefaultPath,
		FileMode: 0o644,
		Logger:   slog.Default(),
	}
}

// document is the on-disk layout.
type document struct {
	Users map[string]*pet.Record `json:"users"`
}

// ══════════════════════════════════════════════════════════════════════════════
// STORE
// ══════════════════════════════════════════════════════════════════════════════

// Store is a pet.Repository persisted as one JSON file.
type Store struct {
	mu     sync.RWMutex
	cfg    Config
	users  map[string]*pet.Record
	logger *slog.Logger

	// replaceFile is swapped in tests to simulate rename failures.
	replaceFile func(tmp, dst string) error
}

// Open loads the document at cfg.Path. A missing or corrupt document yields
// an empty store; only unrecoverable configuration problems return errors.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0o644
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Store{
		cfg:         cfg,
		users:       make(map[string]*pet.Record),
		logger:      cfg.Logger.With(slog.String("component", "jsonfile_store")),
		replaceFile: os.Rename,
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("store file not found, starting empty", "path", s.cfg.Path)
		return nil
	}
	if err != nil {
		s.logger.Warn("store file unreadable, starting empty", "path", s.cfg.Path, "error", err)
		return nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("store file is corrupt, starting empty", "path", s.cfg.Path, "error", err)
		return nil
	}

	for id, rec := range doc.Users {
		if rec == nil {
			continue
		}
		rec.UserID = id
		rec.Normalize()
		s.users[id] = rec
	}
	s.logger.Info("store loaded", "path", s.cfg.Path, "users", len(s.users))
	return nil
}

// Get returns a copy of the record for userID.
func (s *Store) Get(_ context.Context, userID string) (*pet.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.users[userID]
	if !ok {
		return nil, shared.ErrUserNotInitialized
	}
	return rec.Clone(), nil
}

// Save replaces the record and rewrites the document. If the document
// cannot be written the in-memory state is rolled back, so callers never
// observe a save that did not reach disk.
func (s *Store) Save(_ context.Context, rec *pet.Record) error {
	if rec == nil || rec.UserID == "" {
		return shared.NewDomainError("store", "Save", shared.ErrInvalidInput, "record without user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.users[rec.UserID]
	s.users[rec.UserID] = rec.Clone()

	if err := s.flushLocked(); err != nil {
		if existed {
			s.users[rec.UserID] = prev
		} else {
			delete(s.users, rec.UserID)
		}
		return shared.WrapError("store", "Save", shared.ErrPersistence, "write store file", err)
	}
	return nil
}

// IDs returns every stored user id in lexical order.
func (s *Store) IDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Path returns the document path.
func (s *Store) Path() string {
	return s.cfg.Path
}

// ══════════════════════════════════════════════════════════════════════════════
// WRITES
// ══════════════════════════════════════════════════════════════════════════════

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(document{Users: s.users}, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	if err := s.writeAtomic(data); err != nil {
		s.logger.Warn("atomic write failed, falling back to direct write", "path", s.cfg.Path, "error", err)
		if err := os.WriteFile(s.cfg.Path, data, s.cfg.FileMode); err != nil {
			return fmt.Errorf("direct write: %w", err)
		}
	}
	return nil
}

// writeAtomic writes data to a temp file next to the document and renames
// it over the document.
func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.cfg.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.cfg.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, s.cfg.FileMode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := s.replaceFile(tmpName, s.cfg.Path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
