package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/internal/domain/orders"
	"github.com/medorders/medorders/internal/domain/patients"
	"github.com/medorders/medorders/internal/platform/db"
	"github.com/medorders/medorders/pkg/money"
)

// OrderStore is the slice of the orders repository billing needs.
type OrderStore interface {
	GetByNumber(ctx context.Context, number string) (*orders.Order, error)
	Update(ctx context.Context, o *orders.Order) error
}

// PatientStore is the slice of the patients repository billing needs.
type PatientStore interface {
	GetByIDCard(ctx context.Context, idCard string) (*patients.Patient, error)
	GetByID(ctx context.Context, id uuid.UUID) (*patients.Patient, error)
}

type Service struct {
	repo     Repository
	orders   OrderStore
	patients PatientStore
	ledger   patients.CopayLedger
	tx       db.TxRunner
}

func NewService(repo Repository, orderStore OrderStore, patientStore PatientStore, ledger patients.CopayLedger, tx db.TxRunner) *Service {
	return &Service{repo: repo, orders: orderStore, patients: patientStore, ledger: ledger, tx: tx}
}

// GenerateInput carries the fields of a billing request.
type GenerateInput struct {
	OrderNumber   string
	PatientIDCard string
	DoctorName    string
	InvoiceDate   time.Time
	GeneratedBy   string
}

func (in GenerateInput) validate() error {
	if in.OrderNumber == "" {
		return fmt.Errorf("order number is required")
	}
	if in.PatientIDCard == "" {
		return fmt.Errorf("patient id card is required")
	}
	if in.DoctorName == "" {
		return fmt.Errorf("doctor name is required")
	}
	if in.InvoiceDate.IsZero() {
		return fmt.Errorf("invoice date is required")
	}
	return nil
}

// Generate bills an order. It computes the payment split from the patient's
// insurance and copay ledger, then atomically writes the billing record,
// appends the copay event under a lock on the patient's year row and marks
// the order billed. A failure at any point leaves no trace: the order stays
// unbilled and the ledger untouched.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*Billing, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	o, err := s.orders.GetByNumber(ctx, in.OrderNumber)
	if err != nil {
		return nil, err
	}
	if o.Status == orders.StatusBilled {
		return nil, fmt.Errorf("%w: order %s", ErrAlreadyBilled, o.Number)
	}

	p, err := s.patients.GetByIDCard(ctx, in.PatientIDCard)
	if err != nil {
		return nil, err
	}
	if p.ID != o.PatientID {
		return nil, fmt.Errorf("order %s does not belong to patient %s", o.Number, in.PatientIDCard)
	}

	year := in.InvoiceDate.Year()
	var out *Billing
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// Lock the (patient, year) ledger row so two concurrent billings
		// cannot both pass the cap check.
		yearTotal, err := s.ledger.LockYearTotal(ctx, p.ID, year)
		if err != nil {
			return err
		}

		calc, err := Compute(o.TotalCost(), p.Policy, yearTotal, in.InvoiceDate)
		if err != nil {
			return err
		}

		b := &Billing{
			OrderNumber:         o.Number,
			PatientID:           p.ID,
			PatientName:         p.FullName,
			DoctorName:          in.DoctorName,
			InvoiceDate:         in.InvoiceDate,
			TotalCost:           calc.TotalCost,
			Copay:               calc.Copay,
			InsuranceCoverage:   calc.InsuranceCoverage,
			FinalAmount:         calc.TotalCost - calc.Copay - calc.InsuranceCoverage,
			RequiresFullPayment: calc.RequiresFullPayment,
			GeneratedAt:         time.Now().UTC(),
			GeneratedBy:         in.GeneratedBy,
		}
		switch o.Category {
		case orders.CategoryMedication:
			b.AppliedMedications = len(o.Lines)
		case orders.CategoryProcedure:
			b.AppliedProcedures = len(o.Lines)
		case orders.CategoryDiagnostic:
			b.AppliedDiagnosticAids = len(o.Lines)
		}
		if err := s.repo.Create(ctx, b); err != nil {
			return err
		}

		if err := s.ledger.Append(ctx, &patients.CopayEvent{
			PatientID: p.ID,
			Year:      year,
			Amount:    calc.Copay,
			BillingID: b.ID,
		}); err != nil {
			return err
		}

		if err := o.MarkBilled(); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) GetByOrderNumber(ctx context.Context, orderNumber string) (*Billing, error) {
	return s.repo.GetByOrderNumber(ctx, orderNumber)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Billing, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Billing, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// CopaySummary reports a patient's ledger position for one calendar year.
func (s *Service) CopaySummary(ctx context.Context, idCard string, year int) (*CopaySummary, error) {
	p, err := s.patients.GetByIDCard(ctx, idCard)
	if err != nil {
		return nil, err
	}
	total, err := s.ledger.YearTotal(ctx, p.ID, year)
	if err != nil {
		return nil, err
	}
	events, err := s.ledger.Events(ctx, p.ID, year)
	if err != nil {
		return nil, err
	}
	remaining := money.Money(0)
	if total < AnnualCopayCap {
		remaining = AnnualCopayCap - total
	}
	return &CopaySummary{Year: year, Total: total, RemainingAllowance: remaining, Events: events}, nil
}
