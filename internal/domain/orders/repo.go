package orders

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new order with its items. A duplicate order number
	// reports ErrNumberTaken.
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, number string) (*Order, error)
	// Update persists header workflow fields and replaces the item list
	// under optimistic versioning.
	Update(ctx context.Context, o *Order) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error)
	List(ctx context.Context, limit, offset int) ([]*Order, int, error)
}
