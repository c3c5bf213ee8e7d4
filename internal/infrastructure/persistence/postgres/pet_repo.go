package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PET REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PetRepository implements pet.Repository for PostgreSQL.
type PetRepository struct {
	conn *Connection
}

// NewPetRepository creates a new PetRepository.
func NewPetRepository(conn *Connection) *PetRepository {
	return &PetRepository{conn: conn}
}

// Get returns the record for userID.
func (r *PetRepository) Get(ctx context.Context, userID string) (*pet.Record, error) {
	query := `SELECT record FROM pets WHERE user_id = $1`

	var raw []byte
	if err := r.conn.QueryRow(ctx, query, userID).Scan(&raw); err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotInitialized
		}
		return nil, shared.WrapError("store", "Get", shared.ErrPersistence, "query pet", err)
	}

	var rec pet.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, shared.WrapError("store", "Get", shared.ErrPersistence, "decode pet", err)
	}
	rec.UserID = userID
	rec.Normalize()
	return &rec, nil
}

// Save upserts the record inside a transaction, so readers see either the
// previous or the new document.
func (r *PetRepository) Save(ctx context.Context, rec *pet.Record) error {
	if rec == nil || rec.UserID == "" {
		return shared.NewDomainError("store", "Save", shared.ErrInvalidInput, "record without user id")
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return shared.WrapError("store", "Save", shared.ErrPersistence, "encode pet", err)
	}

	err = r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		return upsertPet(ctx, tx, rec.UserID, raw)
	})
	if err != nil {
		return shared.WrapError("store", "Save", shared.ErrPersistence, "upsert pet", err)
	}
	return nil
}

func upsertPet(ctx context.Context, q Querier, userID string, raw []byte) error {
	query := `
		INSERT INTO pets (user_id, record, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			record = EXCLUDED.record,
			updated_at = NOW()
	`
	_, err := q.Exec(ctx, query, userID, raw)
	return err
}

// IDs lists every stored user id.
func (r *PetRepository) IDs(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Query(ctx, `SELECT user_id FROM pets ORDER BY user_id`)
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
