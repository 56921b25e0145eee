package billing

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new billing record. A second record for the same
	// order reports ErrAlreadyBilled.
	Create(ctx context.Context, b *Billing) error
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Billing, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Billing, int, error)
	List(ctx context.Context, limit, offset int) ([]*Billing, int, error)
}
