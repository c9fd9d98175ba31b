package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/inventory"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InMemoryInventoryStore implements inventory.Repository
type InMemoryInventoryStore struct {
	*InMemoryStore[*inventory.Movement]
}

func NewInMemoryInventoryStore() *InMemoryInventoryStore {
	return &InMemoryInventoryStore{InMemoryStore: NewInMemoryStore[*inventory.Movement]()}
}

func copyMovement(m *inventory.Movement) *inventory.Movement {
	if m == nil {
		return nil
	}
	copied := *m
	return &copied
}

func (s *InMemoryInventoryStore) CreateMovement(ctx context.Context, m *inventory.Movement) error {
	if err := s.InMemoryStore.Create(ctx, m.ID, copyMovement(m)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record inventory movement").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryInventoryStore) Balance(ctx context.Context, priceID string) (int64, error) {
	movements := s.InMemoryStore.List(ctx, func(m *inventory.Movement) bool {
		return m.PriceID == priceID
	}, nil)
	var balance int64
	for _, m := range movements {
		balance += m.Delta
	}
	return balance, nil
}

func (s *InMemoryInventoryStore) ListByReference(ctx context.Context, reason types.MovementReason, referenceID string) ([]*inventory.Movement, error) {
	items := s.InMemoryStore.List(ctx, func(m *inventory.Movement) bool {
		return m.Reason == reason && m.ReferenceID == referenceID
	}, nil)
	return lo.Map(items, func(m *inventory.Movement, _ int) *inventory.Movement { return copyMovement(m) }), nil
}

func (s *InMemoryInventoryStore) ListByPrice(ctx context.Context, priceID string) ([]*inventory.Movement, error) {
	items := s.InMemoryStore.List(ctx, func(m *inventory.Movement) bool {
		return m.PriceID == priceID
	}, nil)
	return lo.Map(items, func(m *inventory.Movement, _ int) *inventory.Movement { return copyMovement(m) }), nil
}
