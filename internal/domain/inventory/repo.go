package inventory

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new catalog entry. A duplicate (kind, ref id)
	// reports ErrRefTaken.
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByRef(ctx context.Context, kind Kind, refID string) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	List(ctx context.Context, kind Kind, limit, offset int) ([]*Entry, int, error)
}
