package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medorders/medorders/internal/platform/db"
	"github.com/medorders/medorders/pkg/money"
)

// PatientDirectory resolves a patient id card to the patient's id. Implemented
// by the patients service; kept as a local interface to avoid coupling the
// order aggregate to the patients package.
type PatientDirectory interface {
	FindIDByCard(ctx context.Context, idCard string) (uuid.UUID, error)
}

// PriceResolver resolves an inventory item to its current price. Line items
// submitted without a cost are priced through it.
type PriceResolver interface {
	Price(ctx context.Context, category Category, refID string) (money.Money, error)
}

type Service struct {
	repo     Repository
	patients PatientDirectory
	prices   PriceResolver
	tx       db.TxRunner
}

func NewService(repo Repository, patients PatientDirectory, prices PriceResolver, tx db.TxRunner) *Service {
	return &Service{repo: repo, patients: patients, prices: prices, tx: tx}
}

// FollowUp describes the new order a doctor opens after recording a
// diagnosis. It always gets a fresh order number and may only carry
// medication or procedure items.
type FollowUp struct {
	OrderNumber string
	Date        time.Time
	Items       []Item
}

// Create builds and persists a new order. The first item fixes the
// category; all items must share it. A duplicate order number surfaces as
// ErrNumberTaken.
func (s *Service) Create(ctx context.Context, number, patientIDCard, doctorIDCard string, date time.Time, items []Item) (*Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: an order requires at least one item", ErrInvalidOrderState)
	}

	patientID, err := s.patients.FindIDByCard(ctx, patientIDCard)
	if err != nil {
		return nil, err
	}

	priced, err := s.priceItems(ctx, items)
	if err != nil {
		return nil, err
	}

	o, err := New(number, patientID, doctorIDCard, date, priced[0])
	if err != nil {
		return nil, err
	}
	for _, item := range priced[1:] {
		if err := o.AddItem(item); err != nil {
			return nil, err
		}
	}

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, o)
	}); err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns the order with the given number.
func (s *Service) Get(ctx context.Context, number string) (*Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

// AddItem appends an item to an existing order.
func (s *Service) AddItem(ctx context.Context, number string, item Item) (*Order, error) {
	return s.mutate(ctx, number, func(o *Order) error {
		priced, err := s.priceItems(ctx, []Item{item})
		if err != nil {
			return err
		}
		return o.AddItem(priced[0])
	})
}

// UpdateItem replaces the item with the given item number.
func (s *Service) UpdateItem(ctx context.Context, number string, itemNumber int, item Item) (*Order, error) {
	return s.mutate(ctx, number, func(o *Order) error {
		priced, err := s.priceItems(ctx, []Item{item})
		if err != nil {
			return err
		}
		return o.UpdateItem(itemNumber, priced[0])
	})
}

// RemoveItem removes the item with the given item number.
func (s *Service) RemoveItem(ctx context.Context, number string, itemNumber int) (*Order, error) {
	return s.mutate(ctx, number, func(o *Order) error {
		return o.RemoveItem(itemNumber)
	})
}

// RecordResults attaches result text to a diagnostic order.
func (s *Service) RecordResults(ctx context.Context, number, text string) (*Order, error) {
	return s.mutate(ctx, number, func(o *Order) error {
		return o.RecordResults(text)
	})
}

// RecordDiagnosis records the doctor's diagnosis on a diagnostic order and,
// when followUp is non-nil, opens a new order referencing it. The diagnosis
// update and the follow-up creation commit or roll back together.
func (s *Service) RecordDiagnosis(ctx context.Context, number, text string, followUp *FollowUp) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := o.RecordDiagnosis(text); err != nil {
		return nil, err
	}

	var fo *Order
	if followUp != nil {
		if len(followUp.Items) == 0 {
			return nil, fmt.Errorf("%w: a follow-up order requires at least one item", ErrInvalidOrderState)
		}
		priced, err := s.priceItems(ctx, followUp.Items)
		if err != nil {
			return nil, err
		}
		fo, err = New(followUp.OrderNumber, o.PatientID, o.DoctorIDCard, followUp.Date, priced[0])
		if err != nil {
			return nil, err
		}
		if fo.Category == CategoryDiagnostic {
			return nil, fmt.Errorf("%w: a follow-up order may only contain medication or procedure items", ErrInvalidOrderState)
		}
		for _, item := range priced[1:] {
			if err := fo.AddItem(item); err != nil {
				return nil, err
			}
		}
		fo.FollowUpFor = &o.Number
	}

	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, o); err != nil {
			return err
		}
		if fo != nil {
			return s.repo.Create(ctx, fo)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Order, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Order, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// mutate loads an order, applies fn and persists the result transactionally.
func (s *Service) mutate(ctx context.Context, number string, fn func(o *Order) error) (*Order, error) {
	o, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := fn(o); err != nil {
		return nil, err
	}
	if err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, o)
	}); err != nil {
		return nil, err
	}
	return o, nil
}

// priceItems fills in the cost of items submitted without one. A zero cost
// means "resolve from the catalog"; items with an explicit cost pass through.
func (s *Service) priceItems(ctx context.Context, items []Item) ([]Item, error) {
	out := make([]Item, len(items))
	for i, item := range items {
		if !item.Cost().IsZero() || s.prices == nil {
			out[i] = item
			continue
		}
		switch it := item.(type) {
		case MedicationItem:
			price, err := s.prices.Price(ctx, CategoryMedication, it.MedicationID)
			if err != nil {
				return nil, err
			}
			it.LineCost = price
			out[i] = it
		case ProcedureItem:
			price, err := s.prices.Price(ctx, CategoryProcedure, it.ProcedureID)
			if err != nil {
				return nil, err
			}
			it.LineCost = price
			out[i] = it
		case DiagnosticAidItem:
			price, err := s.prices.Price(ctx, CategoryDiagnostic, it.DiagnosticID)
			if err != nil {
				return nil, err
			}
			it.LineCost = price
			out[i] = it
		default:
			return nil, fmt.Errorf("unsupported item type %T", item)
		}
	}
	return out, nil
}
