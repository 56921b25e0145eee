package patients

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medorders/medorders/pkg/money"
)

type Service struct {
	repo   Repository
	ledger CopayLedger
}

func NewService(repo Repository, ledger CopayLedger) *Service {
	return &Service{repo: repo, ledger: ledger}
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByIDCard(ctx context.Context, idCard string) (*Patient, error) {
	return s.repo.GetByIDCard(ctx, idCard)
}

// FindIDByCard resolves an id card to the patient's id. Satisfies the order
// service's patient directory.
func (s *Service) FindIDByCard(ctx context.Context, idCard string) (uuid.UUID, error) {
	p, err := s.repo.GetByIDCard(ctx, idCard)
	if err != nil {
		return uuid.Nil, err
	}
	return p.ID, nil
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, p)
}

// SetPolicy attaches or replaces the patient's insurance policy.
func (s *Service) SetPolicy(ctx context.Context, idCard string, policy *InsurancePolicy) (*Patient, error) {
	if policy == nil {
		return nil, fmt.Errorf("policy is required")
	}
	p, err := s.repo.GetByIDCard(ctx, idCard)
	if err != nil {
		return nil, err
	}
	p.Policy = policy
	if err := s.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// YearCopayTotal returns the copay total the patient has paid in year.
func (s *Service) YearCopayTotal(ctx context.Context, patientID uuid.UUID, year int) (money.Money, error) {
	return s.ledger.YearTotal(ctx, patientID, year)
}

// CopayEvents lists the ledger entries for (patient, year), oldest first.
func (s *Service) CopayEvents(ctx context.Context, patientID uuid.UUID, year int) ([]*CopayEvent, error) {
	return s.ledger.Events(ctx, patientID, year)
}
