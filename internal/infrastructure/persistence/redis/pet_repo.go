package redis

import (
	"context"
	"errors"
	"sort"

	"github.com/pepegotchi/pepegotchi-bot/internal/domain/pet"
	"github.com/pepegotchi/pepegotchi-bot/internal/domain/shared"
)

// PetRepository implements pet.Repository with one Redis hash: field = user
// id, value = the JSON record. HSET of a single field is atomic.
type PetRepository struct {
	client *Client
}

// NewPetRepository creates a new PetRepository.
func NewPetRepository(client *Client) *PetRepository {
	return &PetRepository{client: client}
}

// Get returns the record for userID.
func (r *PetRepository) Get(ctx context.Context, userID string) (*pet.Record, error) {
	var rec pet.Record
	if err := r.client.HGetJSON(ctx, KeyUsers, userID, &rec); err != nil {
		if errors.Is(err, ErrMiss) {
			return nil, shared.ErrUserNotInitialized
		}
		return nil, shared.WrapError("store", "Get", shared.ErrPersistence, "read pet", err)
	}
	rec.UserID = userID
	rec.Normalize()
	return &rec, nil
}

// Save writes the record.
func (r *PetRepository) Save(ctx context.Context, rec *pet.Record) error {
	if rec == nil || rec.UserID == "" {
		return shared.NewDomainError("store", "Save", shared.ErrInvalidInput, "record without user id")
	}
	if err := r.client.HSetJSON(ctx, KeyUsers, rec.UserID, rec); err != nil {
		return shared.WrapError("store", "Save", shared.ErrPersistence, "write pet", err)
	}
	return nil
}

// IDs lists every stored user id.
func (r *PetRepository) IDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.HKeys(ctx, KeyUsers)
	if err != nil {
		return nil, shared.WrapError("store", "IDs", shared.ErrPersistence, "list pets", err)
	}
	sort.Strings(ids)
	return ids, nil
}
