package pet

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository stores user records keyed by user id.
//
// Callers serialise access per user with a lock; implementations only have
// to make each Save atomic (a reader sees the old or the new record, never
// a mix).
type Repository interface {
	// Get returns a copy of the record.
	// Returns shared.ErrUserNotInitialized if no record exists.
	Get(ctx context.Context, userID string) (*Record, error)

	// Save creates or replaces the record.
	// Failures are reported as shared.ErrPersistence.
	Save(ctx context.Context, rec *Record) error

	// IDs lists the ids of every stored record.
	IDs(ctx context.Context) ([]string, error)
}

// HealthChecker is implemented by repositories backed by a server.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
