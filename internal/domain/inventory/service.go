package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medorders/medorders/internal/domain/orders"
	"github.com/medorders/medorders/pkg/money"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, e)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByRef(ctx context.Context, kind Kind, refID string) (*Entry, error) {
	return s.repo.GetByRef(ctx, kind, refID)
}

func (s *Service) Update(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	return s.repo.Update(ctx, e)
}

func (s *Service) List(ctx context.Context, kind Kind, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, kind, limit, offset)
}

// Price resolves the current price for an order line reference. Satisfies
// the order service's price resolver; inactive entries do not price orders.
func (s *Service) Price(ctx context.Context, category orders.Category, refID string) (money.Money, error) {
	e, err := s.repo.GetByRef(ctx, Kind(category), refID)
	if err != nil {
		return 0, err
	}
	if !e.Active {
		return 0, fmt.Errorf("catalog entry %s/%s is inactive", e.Kind, e.RefID)
	}
	return e.UnitPrice, nil
}
