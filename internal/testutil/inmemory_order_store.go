package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/order"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InMemoryOrderStore implements order.Repository
type InMemoryOrderStore struct {
	*InMemoryStore[*order.Order]
}

func NewInMemoryOrderStore() *InMemoryOrderStore {
	return &InMemoryOrderStore{InMemoryStore: NewInMemoryStore[*order.Order]()}
}

func copyOrder(o *order.Order) *order.Order {
	if o == nil {
		return nil
	}
	copied := *o
	copied.Metadata = lo.Assign(types.Metadata{}, o.Metadata)
	copied.LineItems = lo.Map(o.LineItems, func(li *order.LineItem, _ int) *order.LineItem {
		c := *li
		return &c
	})
	return &copied
}

func (s *InMemoryOrderStore) Create(ctx context.Context, o *order.Order) error {
	if o.ProviderSessionID != "" {
		if _, err := s.GetByProviderSessionID(ctx, o.Provider, o.ProviderSessionID); err == nil {
			return ierr.NewErrorf("order with provider session %s already exists", o.ProviderSessionID).
				WithHint("Order already exists for this session").
				Mark(ierr.ErrAlreadyExists)
		}
	}
	if err := s.InMemoryStore.Create(ctx, o.ID, copyOrder(o)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create order").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryOrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("order %s not found", id).
			WithHint("Order not found").
			Mark(ierr.ErrNotFound)
	}
	return copyOrder(o), nil
}

func (s *InMemoryOrderStore) GetByProviderSessionID(ctx context.Context, provider types.PaymentProvider, sessionID string) (*order.Order, error) {
	matches := s.InMemoryStore.List(ctx, func(o *order.Order) bool {
		return o.Provider == provider && o.ProviderSessionID == sessionID
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no order for provider session %s", sessionID).
			WithHint("Order not found").
			Mark(ierr.ErrNotFound)
	}
	return copyOrder(matches[0]), nil
}

func (s *InMemoryOrderStore) Update(ctx context.Context, o *order.Order) error {
	if err := s.InMemoryStore.Update(ctx, o.ID, copyOrder(o)); err != nil {
		return ierr.NewErrorf("order %s not found", o.ID).
			WithHint("Order not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryOrderStore) Delete(ctx context.Context, id string) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if o.OrderStatus != types.OrderStatusPending {
		return ierr.NewErrorf("cannot delete order %s in status %s", id, o.OrderStatus).
			WithHint("Only pending orders can be deleted").
			Mark(ierr.ErrInvalidOperation)
	}
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryOrderStore) List(ctx context.Context, filter *order.Filter) ([]*order.Order, error) {
	items := s.InMemoryStore.List(ctx, func(o *order.Order) bool {
		if filter == nil {
			return true
		}
		if len(filter.OrderIDs) > 0 && !lo.Contains(filter.OrderIDs, o.ID) {
			return false
		}
		if filter.UserID != "" && o.UserID != filter.UserID {
			return false
		}
		if filter.OrderStatus != "" && o.OrderStatus != filter.OrderStatus {
			return false
		}
		return true
	}, nil)
	return lo.Map(items, func(o *order.Order, _ int) *order.Order { return copyOrder(o) }), nil
}
