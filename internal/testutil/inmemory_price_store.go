package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/inkpress/inkpress/internal/domain/price"
	ierr "github.com/inkpress/inkpress/internal/errors"
	"github.com/inkpress/inkpress/internal/types"
)

// InMemoryPriceStore implements price.Repository
type InMemoryPriceStore struct {
	*InMemoryStore[*price.Price]
}

func NewInMemoryPriceStore() *InMemoryPriceStore {
	return &InMemoryPriceStore{InMemoryStore: NewInMemoryStore[*price.Price]()}
}

func copyPrice(p *price.Price) *price.Price {
	if p == nil {
		return nil
	}
	copied := *p
	copied.Metadata = lo.Assign(types.Metadata{}, p.Metadata)
	return &copied
}

func (s *InMemoryPriceStore) Create(ctx context.Context, p *price.Price) error {
	if err := s.InMemoryStore.Create(ctx, p.ID, copyPrice(p)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create price").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryPriceStore) Get(ctx context.Context, id string) (*price.Price, error) {
	p, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewErrorf("price %s not found", id).
			WithHint("Price not found").
			Mark(ierr.ErrNotFound)
	}
	return copyPrice(p), nil
}

func (s *InMemoryPriceStore) GetByProviderPriceID(ctx context.Context, providerPriceID string) (*price.Price, error) {
	matches := s.InMemoryStore.List(ctx, func(p *price.Price) bool {
		return p.ProviderPriceID == providerPriceID
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("no price for provider price %s", providerPriceID).
			WithHint("Price not found").
			Mark(ierr.ErrNotFound)
	}
	return copyPrice(matches[0]), nil
}

func (s *InMemoryPriceStore) Update(ctx context.Context, p *price.Price) error {
	if err := s.InMemoryStore.Update(ctx, p.ID, copyPrice(p)); err != nil {
		return ierr.NewErrorf("price %s not found", p.ID).
			WithHint("Price not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryPriceStore) Delete(ctx context.Context, id string) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	p.Status = types.StatusArchived
	return s.Update(ctx, p)
}

func (s *InMemoryPriceStore) List(ctx context.Context, filter *price.Filter) ([]*price.Price, error) {
	items := s.InMemoryStore.List(ctx, func(p *price.Price) bool {
		if filter == nil {
			return true
		}
		if filter.GetStatus() != "" && string(p.Status) != filter.GetStatus() {
			return false
		}
		if len(filter.PriceIDs) > 0 && !lo.Contains(filter.PriceIDs, p.ID) {
			return false
		}
		if len(filter.ProductIDs) > 0 && !lo.Contains(filter.ProductIDs, p.ProductID) {
			return false
		}
		if filter.Type != "" && p.Type != filter.Type {
			return false
		}
		return true
	}, nil)
	return lo.Map(items, func(p *price.Price, _ int) *price.Price { return copyPrice(p) }), nil
}

func (s *InMemoryPriceStore) GetDefaultByProduct(ctx context.Context, productID string) (*price.Price, error) {
	matches := s.InMemoryStore.List(ctx, func(p *price.Price) bool {
		return p.ProductID == productID && p.IsDefault && p.Status == types.StatusPublished
	}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewErrorf("product %s has no default price", productID).
			WithHint("No default price configured").
			Mark(ierr.ErrNotFound)
	}
	return copyPrice(matches[0]), nil
}

func (s *InMemoryPriceStore) ClearDefaultForProduct(ctx context.Context, productID string) error {
	matches := s.InMemoryStore.List(ctx, func(p *price.Price) bool {
		return p.ProductID == productID && p.IsDefault
	}, nil)
	for _, p := range matches {
		cp := copyPrice(p)
		cp.IsDefault = false
		if err := s.Update(ctx, cp); err != nil {
			return err
		}
	}
	return nil
}
