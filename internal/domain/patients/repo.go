package patients

import (
	"context"

	"github.com/google/uuid"

	"github.com/medorders/medorders/pkg/money"
)

type Repository interface {
	// Create persists a new patient. A duplicate id card reports
	// ErrIDCardTaken.
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByIDCard(ctx context.Context, idCard string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
}

// CopayLedger is the per-patient, per-year copay ledger. LockYearTotal and
// Append are only meaningful inside a transaction: the billing generation
// flow locks the year row, re-checks the annual cap against the locked
// total, and appends the event before committing.
type CopayLedger interface {
	// YearTotal returns the copay total for (patient, year); zero when no
	// events exist yet.
	YearTotal(ctx context.Context, patientID uuid.UUID, year int) (money.Money, error)
	// LockYearTotal upserts the (patient, year) summary row, locks it for
	// the duration of the surrounding transaction and returns its total.
	LockYearTotal(ctx context.Context, patientID uuid.UUID, year int) (money.Money, error)
	// Append records one copay event and bumps the locked summary row.
	Append(ctx context.Context, ev *CopayEvent) error
	// Events lists the ledger entries for (patient, year), oldest first.
	Events(ctx context.Context, patientID uuid.UUID, year int) ([]*CopayEvent, error)
}
